package templates

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"thirdcoast.systems/airwave/cmd/airwave/internal/status"
)

// StatusView is what the status fragment displays.
type StatusView struct {
	Known    bool
	Snapshot status.Snapshot
}

// Unknown is shown before the status stream has delivered anything.
func Unknown() StatusView {
	return StatusView{}
}

// Known wraps a published snapshot.
func Known(s status.Snapshot) StatusView {
	return StatusView{Known: true, Snapshot: s}
}

// assetURL points at an embedded asset, versioned to bypass caches.
func assetURL(name string, version int64) string {
	return "/static/" + name + "?v=" + strconv.FormatInt(version, 10)
}

func listenerLabel(n int) string {
	if n == 1 {
		return "1 listener"
	}
	return humanize.Comma(int64(n)) + " listeners"
}

func bytesLabel(n uint64) string {
	return humanize.Bytes(n)
}
