//go:build linux

// Command example polls a game for the local player's health, re-attaching
// whenever the game restarts.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"sigmem/pointer"
	"sigmem/process"
	"sigmem/process_linux"
	"sigmem/session"
)

const (
	target = "game.exe"

	// mov rax, [rip+disp]; mov rdx, [rax+0x10]
	playerSignature = "48 8b 05 ? ? ? ? 48 8b 50 10"
)

// Player mirrors the layout of the game's player structure.
type Player struct {
	Health    uint32
	MaxHealth uint32
	Position  [3]float32
}

func main() {
	s := session.New(target, process_linux.NewProcessFinder())
	defer s.Close()

	var player *pointer.Pointer
	for range time.Tick(500 * time.Millisecond) {
		if err := s.Refresh(); err != nil {
			// pointers from the old process are useless after a restart
			player = nil
			if !errors.Is(err, process.ErrProcessNotRunning) {
				fmt.Fprintln(os.Stderr, err)
			}
			continue
		}

		if player == nil {
			p, err := s.ScanAndResolve(playerSignature, 3, 7, 0x10)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			player = p
		}

		v, err := pointer.ReadAs[Player](player)
		if errors.Is(err, process.ErrChainBroken) {
			// not in a match yet
			continue
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Printf("health %d/%d at %.1f %.1f %.1f\n", v.Health, v.MaxHealth, v.Position[0], v.Position[1], v.Position[2])
	}
}
