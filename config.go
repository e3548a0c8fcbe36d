package lfsdbg

import (
	"maps"
	"slices"
)

// ConfigEntry is a raw config record of the mroot.
type ConfigEntry struct {
	Off  int
	Data []byte
}

// Limit is a decoded numeric config value; OK is false if the mroot doesn't
// carry it.
type Limit struct {
	V  uint32
	OK bool
}

// Config is the filesystem configuration stored in the mroot. Values are
// decoded once when the config is read.
type Config struct {
	Raw map[Tag]ConfigEntry

	Magic      []byte
	Version    [2]uint32
	HasVersion bool
	Flags      Limit
	CksumType  Limit
	RedundType Limit
	BlockLimit Limit
	DiskLimit  Limit
	MleafLimit Limit
	SizeLimit  Limit
	NameLimit  Limit
	UtagLimit  Limit
	UattrLimit Limit
}

// ReadConfig reads the config records at rid -1 of the mroot. A nil or
// invalid mroot gives an empty config.
func ReadConfig(mroot *Rbyd) *Config {
	c := &Config{Raw: make(map[Tag]ConfigEntry)}
	tag := Tag(0)
	for {
		e, ok := mroot.Lookup(-1, tag+1)
		if !ok || e.Rid != -1 || e.Tag&0xff00 != TagConfig {
			break
		}
		tag = e.Tag
		c.Raw[e.Tag] = ConfigEntry{Off: e.Off + e.HdrLen, Data: e.Data}
	}

	if e, ok := c.Raw[TagMagic]; ok {
		c.Magic = e.Data
	}
	if e, ok := c.Raw[TagVersion]; ok {
		d := makeByteDecoder(e.Data)
		c.Version[0] = d.LEB128()
		c.Version[1] = d.LEB128()
		c.HasVersion = true
	}
	c.Flags = c.limit(TagFlags)
	c.CksumType = c.limit(TagCksumType)
	c.RedundType = c.limit(TagRedundType)
	c.BlockLimit = c.limit(TagBlockLimit)
	c.DiskLimit = c.limit(TagDiskLimit)
	c.MleafLimit = c.limit(TagMleafLimit)
	c.SizeLimit = c.limit(TagSizeLimit)
	c.NameLimit = c.limit(TagNameLimit)
	c.UtagLimit = c.limit(TagUtagLimit)
	c.UattrLimit = c.limit(TagUattrLimit)
	return c
}

func (c *Config) limit(tag Tag) Limit {
	e, ok := c.Raw[tag]
	if !ok {
		return Limit{}
	}
	v, _ := FromLEB128(e.Data)
	return Limit{v, true}
}

// Tags returns the config tags present, in ascending order.
func (c *Config) Tags() []Tag {
	return slices.Sorted(maps.Keys(c.Raw))
}
