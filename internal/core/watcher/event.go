package watcher

import (
	"fmt"
	"strings"

	"pathwatch/internal/core/ports"
)

// ChangeKind classifies a file system change.
type ChangeKind int

const (
	KindOther ChangeKind = iota
	KindCreated
	KindRemoved
	KindRenamed
	KindModified
	KindMetadataChanged
)

var kindNames = map[ChangeKind]string{
	KindOther:           "other",
	KindCreated:         "created",
	KindRemoved:         "removed",
	KindRenamed:         "renamed",
	KindModified:        "modified",
	KindMetadataChanged: "metadata",
}

func (k ChangeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseChangeKind maps a name produced by String back to its kind.
func ParseChangeKind(name string) (ChangeKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for kind, kindName := range kindNames {
		if kindName == normalized {
			return kind, nil
		}
	}
	return KindOther, fmt.Errorf("unknown change kind %q", name)
}

// AllKinds lists every kind in classification priority order, Other last.
func AllKinds() []ChangeKind {
	return []ChangeKind{KindCreated, KindRemoved, KindRenamed, KindModified, KindMetadataChanged, KindOther}
}

// Event is one translated change record.
type Event struct {
	ID    uint64
	Path  string
	Kind  ChangeKind
	Flags ports.EventFlags
}

func (e Event) IsDir() bool {
	return e.Flags&ports.FlagItemIsDir != 0
}

func (e Event) String() string {
	return fmt.Sprintf("%d %s %s", e.ID, e.Kind, e.Path)
}

const metadataFlags = ports.FlagItemInodeMetaMod |
	ports.FlagItemFinderInfoMod |
	ports.FlagItemChangeOwner |
	ports.FlagItemXattrMod

// Structural changes first, then content, then metadata.
var kindPriority = []struct {
	mask ports.EventFlags
	kind ChangeKind
}{
	{ports.FlagItemCreated, KindCreated},
	{ports.FlagItemRemoved, KindRemoved},
	{ports.FlagItemRenamed, KindRenamed},
	{ports.FlagItemModified, KindModified},
	{metadataFlags, KindMetadataChanged},
}

// Translate turns one raw record into an Event. A record with several bits
// set takes the highest-priority kind; records with no recognised change bit
// are KindOther.
func Translate(id uint64, path string, flags ports.EventFlags) Event {
	kind := KindOther
	for _, p := range kindPriority {
		if flags&p.mask != 0 {
			kind = p.kind
			break
		}
	}
	return Event{ID: id, Path: path, Kind: kind, Flags: flags}
}
