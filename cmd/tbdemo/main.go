// Command tbdemo exercises the SDK against a live platform: it logs in,
// lists devices, reads keys, attributes and timeseries of one device, and
// then follows its latest telemetry until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/devicelink/tbclient/api"
	"github.com/devicelink/tbclient/gateway"
	"github.com/devicelink/tbclient/session"
	"github.com/devicelink/tbclient/telemetry"
	"github.com/devicelink/tbclient/utils"
)

func main() {
	configPath := flag.String("config", "tbdemo.yaml", "path of the yaml config file")
	follow := flag.Bool("follow", true, "subscribe to live telemetry after the listings")
	flag.Parse()

	cfg, err := LoadDemoConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	utils.SetLogging(cfg.LogLevel, "")

	if err = run(cfg, *follow); err != nil {
		slog.Error("tbdemo failed", "err", err.Error())
		os.Exit(1)
	}
}

func run(cfg *DemoConfig, follow bool) error {
	sm := session.NewSessionManager(cfg.Host, nil, 0)

	result, err := connect(sm, cfg)
	if err != nil {
		return err
	}
	defer sm.Disconnect()
	if result.Claims != nil {
		slog.Info("logged in", "subject", result.Claims["sub"])
	}

	gw := gateway.NewGateway(sm)
	devices, err := gw.GetTenantDevices(gateway.DeviceListParams{})
	if err != nil {
		return err
	}
	for _, device := range devices {
		fmt.Printf("device %-24s %s\n", device.Name, device.ID.ID)
	}

	deviceID := cfg.DeviceID
	if deviceID == "" {
		if len(devices) == 0 {
			slog.Warn("no devices to inspect")
			return nil
		}
		deviceID = devices[0].ID.ID
	}

	keys, err := gw.GetKeys(deviceID, api.ScopeTimeseries)
	if err != nil {
		return err
	}
	fmt.Printf("timeseries keys: %v\n", keys)

	attrKeys, err := gw.GetKeys(deviceID, api.ScopeClient)
	if err == nil && len(attrKeys) > 0 {
		attrs, err := gw.GetAttributesByScope(deviceID, api.ScopeClient, attrKeys)
		if err == nil {
			for _, attr := range attrs {
				fmt.Printf("attribute %s = %v\n", attr.Key, attr.Value)
			}
		}
	}

	if len(keys) > 0 {
		startTs, endTs, err := cfg.Window()
		if err != nil {
			return err
		}
		series, err := gw.GetTimeseries(deviceID, api.TimeseriesQuery{
			Keys: keys, StartTs: startTs, EndTs: endTs})
		if err != nil {
			return err
		}
		for key, samples := range series {
			fmt.Printf("%s: %d samples\n", key, len(samples))
		}
	}

	if !follow {
		return nil
	}
	return followTelemetry(sm, cfg, deviceID)
}

// connect picks the session mode from the configured credentials:
// pre-issued token first, then public id, then username/password.
func connect(sm *session.SessionManager, cfg *DemoConfig) (*session.ConnectResult, error) {
	switch {
	case cfg.Token != "":
		return sm.ConnectWithToken(cfg.Token)
	case cfg.PublicID != "":
		return sm.ConnectPublic(cfg.PublicID)
	default:
		return sm.ConnectWithPassword(cfg.Username, cfg.Password)
	}
}

func followTelemetry(sm *session.SessionManager, cfg *DemoConfig, deviceID string) error {
	if cfg.CmdID == 0 {
		return fmt.Errorf("cmdId is required to subscribe")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	closed := make(chan struct{})
	stream := telemetry.NewTelemetryStream(cfg.Host, nil)
	err := stream.Open(sm.Token(), api.NewDeviceRef(deviceID), cfg.CmdID,
		func(frame map[string]any) {
			if frame == nil {
				close(closed)
				return
			}
			fmt.Printf("telemetry: %v\n", frame)
		})
	if err != nil {
		return err
	}

	slog.Info("following telemetry, ctrl-c to stop", "deviceID", deviceID)
	select {
	case <-ctx.Done():
		stream.Close()
		<-closed
	case <-closed:
	}
	return nil
}
