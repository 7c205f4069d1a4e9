package fsevents

import (
	"io/fs"
	"os"

	"pathwatch/internal/core/ports"

	"github.com/fsnotify/fsnotify"
)

var opToFlag = []struct {
	op   fsnotify.Op
	flag ports.EventFlags
}{
	{fsnotify.Create, ports.FlagItemCreated},
	{fsnotify.Remove, ports.FlagItemRemoved},
	{fsnotify.Rename, ports.FlagItemRenamed},
	{fsnotify.Write, ports.FlagItemModified},
	{fsnotify.Chmod, ports.FlagItemInodeMetaMod},
}

// opFlags maps every fsnotify op bit present to its item flag.
func opFlags(op fsnotify.Op) ports.EventFlags {
	var flags ports.EventFlags
	for _, m := range opToFlag {
		if op.Has(m.op) {
			flags |= m.flag
		}
	}
	return flags
}

// itemTypeFlags reports what kind of item path is. Removed and renamed-away
// paths no longer exist, so they carry no type bit.
func itemTypeFlags(path string, op fsnotify.Op) ports.EventFlags {
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		return ports.FlagNone
	}
	info, err := os.Lstat(path)
	if err != nil {
		return ports.FlagNone
	}
	return typeFlag(info.Mode())
}

func typeFlag(mode fs.FileMode) ports.EventFlags {
	switch {
	case mode&fs.ModeSymlink != 0:
		return ports.FlagItemIsSymlink
	case mode.IsDir():
		return ports.FlagItemIsDir
	case mode.IsRegular():
		return ports.FlagItemIsFile
	default:
		return ports.FlagNone
	}
}
