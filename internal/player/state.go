// SPDX-License-Identifier: MIT
package player

// State is the playback state of a Player.
//
//	Stopped  --Start-->     Playing
//	Playing  --Stop-->      Paused (device paused, queued audio kept)
//	Paused   --Start-->     Playing
//	Playing  --EOF-->       Draining --drained--> Stopped (position 0)
//	Playing  --Seek(s)-->   Playing (device flushed, position s)
//	Stopped, Paused --Seek(s)--> unchanged (stream repositioned)
//	any      --Terminate--> Terminated
type State int

const (
	Stopped State = iota
	Playing
	Paused
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Active reports whether the device is supposed to be producing sound.
func (s State) Active() bool { return s == Playing || s == Draining }
