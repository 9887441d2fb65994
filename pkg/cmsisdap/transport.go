package cmsisdap

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/OpenTraceLab/bsio/pkg/bitpack"
	"github.com/OpenTraceLab/bsio/pkg/jtag"
)

// DefaultPacketSize is the report size of CMSIS-DAP v1 probes.
const DefaultPacketSize = 64

// DefaultSpeedHz is the TCK frequency set when a probe is opened.
const DefaultSpeedHz = 1_000_000

// Link carries one command packet to the probe and returns its response.
// usblink.Link implements it over USB bulk endpoints.
type Link interface {
	WriteRead(cmd []byte) ([]byte, error)
	PacketSize() int
	Close() error
}

// Options tunes Open.
type Options struct {
	SpeedHz int
	Logger  *log.Logger
}

// Transport implements jtag.Transport on a CMSIS-DAP probe. Bit primitives are
// expressed as DAP_JTAG_Sequence runs; pin access uses DAP_SWJ_Pins. It is safe
// for concurrent use, although a boundary-scan session should still have a
// single owner.
type Transport struct {
	link   Link
	proto  *Protocol
	logger *log.Logger

	info      jtag.AdapterInfo
	speedHz   int
	connected bool

	mu sync.Mutex
}

// Open queries the probe, switches it to JTAG mode and sets the clock.
// The link is closed if any step fails.
func Open(link Link, opts Options) (*Transport, error) {
	if opts.SpeedHz == 0 {
		opts.SpeedHz = DefaultSpeedHz
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	packetSize := link.PacketSize()
	if packetSize <= 0 {
		packetSize = DefaultPacketSize
	}

	t := &Transport{
		link:   link,
		proto:  NewProtocol(packetSize),
		logger: opts.Logger,
	}

	if err := t.queryInfo(); err != nil {
		link.Close()
		return nil, fmt.Errorf("failed to query device info: %w", err)
	}
	if err := t.connect(); err != nil {
		link.Close()
		return nil, fmt.Errorf("failed to connect to JTAG: %w", err)
	}
	if err := t.SetSpeed(opts.SpeedHz); err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to set default speed: %w", err)
	}

	t.logger.Debug("cmsis-dap open", "vendor", t.info.Vendor, "model", t.info.Model,
		"firmware", t.info.Firmware, "packet_size", packetSize, "speed_hz", t.speedHz)
	return t, nil
}

func (t *Transport) exchange(op string, cmd []byte) ([]byte, error) {
	resp, err := t.link.WriteRead(cmd)
	if err != nil {
		return nil, jtag.Wrap(op, jtag.CodeUSB, err)
	}
	return resp, nil
}

// queryInfo retrieves device information from the probe
func (t *Transport) queryInfo() error {
	str := func(id byte) (string, error) {
		resp, err := t.exchange("DAP_Info", t.proto.EncodeInfo(id))
		if err != nil {
			return "", err
		}
		return t.proto.DecodeInfo(resp)
	}

	vendor, err := str(InfoVendorName)
	if err != nil {
		return err
	}
	// The remaining strings are optional; firmware may answer with length 0.
	product, _ := str(InfoProductName)
	serial, _ := str(InfoSerialNum)
	firmware, _ := str(InfoFirmwareVer)

	t.info = jtag.AdapterInfo{
		Name:         "CMSIS-DAP Probe",
		Vendor:       vendor,
		Model:        product,
		SerialNumber: serial,
		Firmware:     firmware,
		MinFrequency: 1000,       // 1 kHz
		MaxFrequency: 10_000_000, // 10 MHz (typical for CMSIS-DAP)
		SupportsPins: true,
	}
	return nil
}

// connect establishes JTAG connection
func (t *Transport) connect() error {
	resp, err := t.exchange("DAP_Connect", t.proto.EncodeConnect(PortJTAG))
	if err != nil {
		return err
	}
	port, err := t.proto.DecodeConnect(resp)
	if err != nil {
		return jtag.NewError("DAP_Connect", jtag.CodeProtocol, err)
	}
	if port != PortJTAG {
		return jtag.NewError("DAP_Connect", jtag.CodeUnsupported,
			fmt.Errorf("probe connected port %d, not JTAG", port))
	}
	t.connected = true
	return nil
}

// Info implements jtag.Describer.
func (t *Transport) Info() (jtag.AdapterInfo, error) {
	return t.info, nil
}

// Speed returns the configured TCK frequency.
func (t *Transport) Speed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.speedHz
}

// SetSpeed sets the TCK frequency
func (t *Transport) SetSpeed(hz int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if hz < t.info.MinFrequency || hz > t.info.MaxFrequency {
		return jtag.BadParameter("SetSpeed", "frequency %d Hz out of range [%d, %d]",
			hz, t.info.MinFrequency, t.info.MaxFrequency)
	}
	resp, err := t.exchange("DAP_SWJ_Clock", t.proto.EncodeSetClock(uint32(hz)))
	if err != nil {
		return err
	}
	if err := t.proto.DecodeSetClock(resp); err != nil {
		return jtag.NewError("DAP_SWJ_Clock", jtag.CodeProtocol, err)
	}
	t.speedHz = hz
	return nil
}

// Close disconnects and releases resources
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connected {
		// Best effort; the link is closed regardless.
		if resp, err := t.link.WriteRead(t.proto.EncodeDisconnect()); err == nil {
			if err := t.proto.DecodeDisconnect(resp); err != nil {
				t.logger.Warn("cmsis-dap disconnect", "err", err)
			}
		}
		t.connected = false
	}
	return t.link.Close()
}

// SetPins implements jtag.Transport.
func (t *Transport) SetPins(p jtag.Pins) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out byte
	if p.TCK {
		out |= PinTCK
	}
	if p.TMS {
		out |= PinTMS
	}
	if p.TDI {
		out |= PinTDI
	}
	resp, err := t.exchange("SetPins", t.proto.EncodeSWJPins(out, PinTCK|PinTMS|PinTDI, 0))
	if err != nil {
		return err
	}
	if _, err := t.proto.DecodeSWJPins(resp); err != nil {
		return jtag.NewError("SetPins", jtag.CodeProtocol, err)
	}
	return nil
}

// GetPins implements jtag.Transport.
func (t *Transport) GetPins() (jtag.Pins, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	resp, err := t.exchange("GetPins", t.proto.EncodeSWJPins(0, 0, 0))
	if err != nil {
		return jtag.Pins{}, err
	}
	in, err := t.proto.DecodeSWJPins(resp)
	if err != nil {
		return jtag.Pins{}, jtag.NewError("GetPins", jtag.CodeProtocol, err)
	}
	return jtag.Pins{
		TCK: in&PinTCK != 0,
		TMS: in&PinTMS != 0,
		TDI: in&PinTDI != 0,
		TDO: in&PinTDO != 0,
	}, nil
}

// ClockTCK implements jtag.Transport.
func (t *Transport) ClockTCK(cycles int, tdi, tms bool) error {
	if cycles <= 0 {
		return jtag.BadParameter("ClockTCK", "cycles must be positive, got %d", cycles)
	}
	return t.run("ClockTCK", cycles, constant(tdi), constant(tms), nil)
}

// SendTDIBits implements jtag.Transport.
func (t *Transport) SendTDIBits(tdi []byte, bits int, tms bool, tdo []byte) error {
	if tdi == nil {
		return jtag.BadParameter("SendTDIBits", "nil tdi buffer")
	}
	if _, err := jtag.ValidateShiftBuffers(bits, tdi, tdo); err != nil {
		return err
	}
	return t.run("SendTDIBits", bits, stream(tdi), constant(tms), tdo)
}

// SendTMSBits implements jtag.Transport.
func (t *Transport) SendTMSBits(tms []byte, bits int, tdi bool, tdo []byte) error {
	if tms == nil {
		return jtag.BadParameter("SendTMSBits", "nil tms buffer")
	}
	if _, err := jtag.ValidateShiftBuffers(bits, tms, tdo); err != nil {
		return err
	}
	return t.run("SendTMSBits", bits, constant(tdi), stream(tms), tdo)
}

// SendTDITMSBits implements jtag.Transport.
func (t *Transport) SendTDITMSBits(tdi, tms []byte, bits int, tdo []byte) error {
	if tdi == nil || tms == nil {
		return jtag.BadParameter("SendTDITMSBits", "tdi and tms buffers are required")
	}
	if _, err := jtag.ValidateShiftBuffers(bits, tdi, tms, tdo); err != nil {
		return err
	}
	return t.run("SendTDITMSBits", bits, stream(tdi), stream(tms), tdo)
}

// GetTDOBits implements jtag.Transport.
func (t *Transport) GetTDOBits(tdi, tms bool, tdo []byte, bits int) error {
	if tdo == nil {
		return jtag.BadParameter("GetTDOBits", "nil tdo buffer")
	}
	if _, err := jtag.ValidateShiftBuffers(bits, tdo); err != nil {
		return err
	}
	return t.run("GetTDOBits", bits, constant(tdi), constant(tms), tdo)
}

type bitSource func(i int) bool

func constant(v bool) bitSource {
	return func(int) bool { return v }
}

func stream(buf []byte) bitSource {
	return func(i int) bool { return bitpack.Bit(buf, i) }
}

// span ties a sequence to the first clock it covers.
type span struct {
	seq   JTAGSequence
	start int
}

// buildSequences splits a clock stream into CMSIS-DAP sequences.
// CMSIS-DAP uses a single TMS value per sequence, so a new sequence starts
// whenever TMS changes or the current one reaches MaxSequenceClocks.
func buildSequences(bits int, tdi, tms bitSource, capture bool) []span {
	var spans []span
	for pos := 0; pos < bits; {
		level := tms(pos)
		n := 0
		for pos+n < bits && n < MaxSequenceClocks && tms(pos+n) == level {
			n++
		}
		data := make([]byte, bitpack.ByteLen(n))
		for i := 0; i < n; i++ {
			if tdi(pos + i) {
				data[i/8] |= 1 << (uint(i) % 8)
			}
		}
		spans = append(spans, span{seq: NewJTAGSequence(n, level, capture, data), start: pos})
		pos += n
	}
	return spans
}

// batch groups spans into commands whose request and response both fit in a
// packet.
func (t *Transport) batch(spans []span) [][]span {
	limit := t.proto.PacketSize
	var out [][]span
	var cur []span
	cmdLen, respLen := 2, 2
	for _, s := range spans {
		req := 1 + len(s.seq.TDI)
		resp := 0
		if s.seq.CaptureTDO() {
			resp = len(s.seq.TDI)
		}
		if len(cur) > 0 && (cmdLen+req > limit || respLen+resp > limit || len(cur) == 255) {
			out = append(out, cur)
			cur, cmdLen, respLen = nil, 2, 2
		}
		cur = append(cur, s)
		cmdLen += req
		respLen += resp
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func (t *Transport) run(op string, bits int, tdi, tms bitSource, tdo []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return jtag.NewError(op, jtag.CodeNotConnected, jtag.ErrNotConnected)
	}

	spans := buildSequences(bits, tdi, tms, tdo != nil)
	for _, group := range t.batch(spans) {
		seqs := make([]JTAGSequence, len(group))
		for i, s := range group {
			seqs[i] = s.seq
		}
		resp, err := t.exchange(op, t.proto.EncodeJTAGSequence(seqs))
		if err != nil {
			return err
		}
		captured, err := t.proto.DecodeJTAGSequence(resp, seqs)
		if err != nil {
			return jtag.NewError(op, jtag.CodeProtocol, err)
		}
		if tdo == nil {
			continue
		}
		for i, s := range group {
			for b := 0; b < s.seq.TCKCount(); b++ {
				bitpack.SetBit(tdo, s.start+b, bitpack.Bit(captured[i], b))
			}
		}
	}
	return nil
}
