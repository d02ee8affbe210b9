package capturelog

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"

	"wsntrace/internal/logger"
	"wsntrace/pkg/models"
)

// ReasonNoNetworkLayer counts frames without a decodable network layer.
const ReasonNoNetworkLayer = "no_network_layer"

// PcapOptions controls pcap decoding.
type PcapOptions struct {
	// NodeIDs reduces addresses to the Contiki node id (last address byte).
	NodeIDs bool
}

// ParsePcapFile reads a libpcap capture and emits one record per unicast packet.
// Timestamps are milliseconds since the first packet.
func ParsePcapFile(path string, opts PcapOptions) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture pcap: %w", err)
	}
	defer f.Close()

	res, err := ParsePcap(f, opts)
	if err != nil {
		return nil, fmt.Errorf("parse capture pcap %s: %w", path, err)
	}
	logger.Infof("Capture pcap parsed: path=%s packets=%d records=%d skipped=%d",
		path, res.LinesRead, len(res.Records), res.SkippedTotal())
	return res, nil
}

// ParsePcap decodes packets from r.
func ParsePcap(r io.Reader, opts PcapOptions) (*Result, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("read pcap header: %w", err)
	}

	res := newResult()
	var first int64
	for {
		data, ci, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read packet %d: %w", res.LinesRead+1, err)
		}
		res.LinesRead++
		if res.LinesRead == 1 {
			first = ci.Timestamp.UnixNano()
		}

		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.Default)
		nl := packet.NetworkLayer()
		if nl == nil {
			res.Skipped[ReasonNoNetworkLayer]++
			continue
		}

		flow := nl.NetworkFlow()
		src := endpointID(flow.Src(), opts.NodeIDs)
		dst := destinationID(flow.Dst(), opts.NodeIDs)
		if dst == models.PlaceholderDestination {
			res.Skipped[ReasonPlaceholderDestination]++
			continue
		}

		var payload string
		if app := packet.ApplicationLayer(); app != nil {
			payload = hex.EncodeToString(app.Payload())
		}

		elapsed := float64(ci.Timestamp.UnixNano()-first) / 1e6
		res.Records = append(res.Records, models.CaptureRecord{
			Timestamp:   strconv.FormatFloat(elapsed, 'f', 3, 64),
			Source:      src,
			Destination: dst,
			Payload:     payload,
		})
	}
	return res, nil
}

func destinationID(ep gopacket.Endpoint, nodeIDs bool) string {
	ip := net.IP(ep.Raw())
	if len(ip) == net.IPv4len || len(ip) == net.IPv6len {
		if ip.IsMulticast() || ip.Equal(net.IPv4bcast) || ip.IsUnspecified() {
			return models.PlaceholderDestination
		}
	}
	return endpointID(ep, nodeIDs)
}

func endpointID(ep gopacket.Endpoint, nodeIDs bool) string {
	raw := ep.Raw()
	if nodeIDs && len(raw) > 0 {
		return strconv.Itoa(int(raw[len(raw)-1]))
	}
	return models.NormalizeID(ep.String())
}
