// send-telemetry replays a JSONL fixture file against a running gesture
// host over UDP, one datagram per line. Useful for tuning detectors at
// the desk without a full vision rig.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net"
	"os"
	"time"
)

var (
	target   = flag.String("target", "127.0.0.1:9000", "gesture host UDP address")
	fixture  = flag.String("fixture", "fixtures.jsonl", "JSONL telemetry fixture path")
	interval = flag.Duration("interval", 16*time.Millisecond, "delay between datagrams")
	loop     = flag.Bool("loop", false, "replay the fixture forever")
)

func main() {
	flag.Parse()

	addr, err := net.ResolveUDPAddr("udp", *target)
	if err != nil {
		log.Fatalf("failed to resolve target address: %v", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		log.Fatalf("failed to dial target: %v", err)
	}
	defer conn.Close()

	for {
		sent, err := replayFixture(conn, *fixture)
		if err != nil {
			log.Fatalf("replay failed: %v", err)
		}
		log.Printf("sent %d datagrams to %s", sent, *target)
		if !*loop {
			return
		}
	}
}

func replayFixture(conn *net.UDPConn, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sent := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// Skip non-JSON lines so the fixture can carry comments.
		if !json.Valid(line) {
			log.Printf("skipping invalid fixture line: %q", line)
			continue
		}
		if _, err := conn.Write(line); err != nil {
			return sent, err
		}
		sent++
		time.Sleep(*interval)
	}
	return sent, scanner.Err()
}
