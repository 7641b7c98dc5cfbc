// Command holdvox-keys is a manual test for the global key listener. It
// prints every key edge with its canonical name, which is the name to use
// in hotkey bindings. Unnamed keys (pedals, macro pads, FLIRC receivers)
// show up as vk_NNN codes usable in extra_dictation_keys.
//
// With -scan it instead searches for BLE trigger remotes and prints their
// addresses for the ble.device_mac config field.
//
// Usage:
//
//	go run ./cmd/holdvox-keys [-scan]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ewoodruff/holdvox/internal/ble"
	"github.com/ewoodruff/holdvox/internal/keyevent"
)

func main() {
	scan := flag.Bool("scan", false, "scan for BLE trigger remotes instead of listening for keys")
	scanTimeout := flag.Duration("scan-timeout", 10*time.Second, "how long to scan with -scan")
	flag.Parse()

	if *scan {
		if err := scanRemotes(*scanTimeout); err != nil {
			fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println("Press keys to see their canonical names. Ctrl+C to exit.")

	listener := keyevent.NewListener()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	go func() {
		for ev := range listener.Events() {
			marker := ">>>"
			if ev.Edge == keyevent.Release {
				marker = "<<<"
			}
			mod := ""
			if keyevent.IsModifier(ev.Key) {
				mod = " (modifier)"
			}
			fmt.Printf("%s %-10s %s%s\n", marker, ev.Key, ev.Edge, mod)
		}
		fmt.Println("Event channel closed.")
	}()

	// Blocks until stopped.
	listener.Start()
	fmt.Println("Done.")
}

func scanRemotes(timeout time.Duration) error {
	fmt.Printf("Scanning for remotes (%s)...\n", timeout)
	devices, err := ble.ScanForRemotes(ble.NewSystemAdapter(), timeout)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No remotes found.")
		return nil
	}
	for _, d := range devices {
		name := d.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("  %s  %s  RSSI %d\n", d.MAC, name, d.RSSI)
	}
	fmt.Println("Put the address in ble.device_mac in your config.")
	return nil
}
