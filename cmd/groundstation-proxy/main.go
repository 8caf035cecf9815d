// Command groundstation-proxy runs the fan-out TCP relay between the
// ground station's software clients and the hardware endpoint (spec.md
// §4.5, §6). Grounded on original_source/tcp_proxy.py's __main__ block
// and the teacher's cmd/bluetooth-service/main.go flag style.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/agh-space-systems/groundstation/pkg/proxy"
)

var (
	tcpAddress = flag.String("tcp-address", "127.0.0.1", "TCP address to listen on")
	tcpPort    = flag.Int("tcp-port", 3000, "TCP port for the software side; the hardware side listens on port+1")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("Starting ground station fan-out proxy")
	log.Printf("TCP address: %s", *tcpAddress)
	log.Printf("TCP port (software): %d, (hardware): %d", *tcpPort, *tcpPort+1)

	software := proxy.NewSide("software", fmt.Sprintf("%s:%d", *tcpAddress, *tcpPort), true)
	hardware := proxy.NewSide("hardware", fmt.Sprintf("%s:%d", *tcpAddress, *tcpPort+1), false)
	proxy.RegisterExternalListener(software, hardware)

	errCh := make(chan error, 2)
	go func() { errCh <- software.Serve() }()
	go func() { errCh <- hardware.Serve() }()

	log.Fatal(<-errCh)
}
