package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/bsio/internal/config"
	"github.com/OpenTraceLab/bsio/pkg/bscan"
	"github.com/OpenTraceLab/bsio/pkg/cmsisdap"
	"github.com/OpenTraceLab/bsio/pkg/cmsisdap/usblink"
	"github.com/OpenTraceLab/bsio/pkg/jtag"
)

// openTransport creates the transport selected by adapter.kind
func openTransport(c *config.Config) (jtag.Transport, error) {
	switch c.Adapter.Kind {
	case config.AdapterSimulator:
		dev := c.SimDevice()
		logger.Debug("using simulator", "idcode", fmt.Sprintf("0x%08X", dev.IDCode), "ir", dev.IRLength)
		return jtag.NewSimTransport(dev), nil
	case config.AdapterCMSISDAP:
		link, err := usblink.Open(c.Adapter.VID, c.Adapter.PID, c.Adapter.Timeout)
		if err != nil {
			return nil, err
		}
		return cmsisdap.Open(link, cmsisdap.Options{SpeedHz: c.Adapter.SpeedHz, Logger: logger})
	}
	return nil, fmt.Errorf("unknown adapter %q", c.Adapter.Kind)
}

// openSession connects a controller for one command. The caller must call
// closeSession when done.
func openSession() (*bscan.Controller, error) {
	t, err := openTransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open adapter: %w", err)
	}
	if d, ok := t.(jtag.Describer); ok {
		if info, err := d.Info(); err == nil {
			logger.Info("adapter", "name", info.Name, "vendor", info.Vendor, "firmware", info.Firmware)
		}
	}

	family, _ := cfg.Family()
	ctl := bscan.New(t,
		bscan.WithLogger(logger),
		bscan.WithResetClocks(cfg.TAP.ResetClocks),
	)
	if err := ctl.Connect(family); err != nil {
		if c, ok := t.(interface{ Close() error }); ok {
			c.Close()
		}
		return nil, fmt.Errorf("connect: %w", err)
	}
	return ctl, nil
}

func closeSession(ctl *bscan.Controller) {
	if err := ctl.Disconnect(); err != nil {
		logger.Warn("disconnect failed", "err", err)
	}
}
