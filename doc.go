/*
Package lfsdbg reads the metadata of a littlefs v2 image without mounting it.

Everything is read-only and tolerant of damage: a corrupted block never
produces an error, it produces an invalid head, and walks that run into one
record the problem and keep going.

We implement:

1. Block logs. Every metadata block is an append-only log of records ending
in checksum commits. ScanBlock replays the log and keeps the last commit that
validates. Fetch does this for each copy of a redundant block group and picks
the newest one.

2. Trees inside a block ("rbyds"). Records are threaded into a red-black tree
by alt pointers. Lookup descends it by (rid, tag), All iterates it.

3. B-trees across blocks. Branch records point at child rbyds; BtreeLookup
walks them by bid.

4. The filesystem. The mroot (blocks 0 and 1 by default) holds the config and
points either at a single mdir or at the mtree, a B-tree of mdirs. Names are
resolved with MtreeNameLookup and directories are listed with MtreeDir.

5. Global state. Each mdir carries deltas which XOR together into gstate; the
only gstate currently defined is the grm, a list of pending removals.

6. Inspection. Inspect walks every reachable structure, checks that
directories and bookmarks agree, and collects every CorruptionError found.
Reports summarize inspections and can be archived in a Bolt database to see
which mdirs changed between runs.

# Addresses

Block groups are written as 0x{a,b}, optionally followed by a trunk offset:
0x{a,b}.1c. ParseAddr reads the same notation.

# Coordinates

A rid is a position in one rbyd, rid -1 holding records about the rbyd itself
(config, gstate). A bid is a position in a B-tree. An mbid is a bid in the
mtree; each mdir covers MleafWeight of them, and is identified by the last
one. Remove markers identify entries by the first mbid of their mdir plus the
rid.
*/
package lfsdbg
