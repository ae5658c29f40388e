package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kilianp07/loadshift/infra/logger"
	"github.com/kilianp07/loadshift/infra/mqtt"
)

func main() {
	cfg := parseFlags()
	log := logger.New("simulator")
	if err := (&cfg).Validate(); err != nil {
		log.Errorf("invalid config: %v", err)
		os.Exit(1)
	}
	level := "info"
	if cfg.Verbose {
		level = "debug"
	}
	_ = logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loads, _ := ParseLoads(cfg.Loads)
	house := NewHouse(cfg.BaseWatts, cfg.NoiseWatts, loads, rand.New(rand.NewSource(time.Now().UnixNano())))

	client, err := mqtt.Connect(mqtt.Config{Broker: cfg.Broker, ClientID: "loadshift-sim"}, logger.New("mqtt"))
	if err != nil {
		log.Errorf("mqtt: %v", err)
		os.Exit(1)
	}
	defer client.Disconnect()

	if err := bindLoads(client, house, log); err != nil {
		log.Errorf("subscribe: %v", err)
		os.Exit(1)
	}
	log.Infof("simulating %d loads, publishing to %s every %s", len(loads), cfg.MeterTopic, cfg.Interval)
	if err := publishReadings(ctx, client, house, cfg, log); err != nil {
		log.Errorf("publish: %v", err)
		os.Exit(1)
	}
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.StringVar(&cfg.MeterTopic, "meter-topic", "loadshift/meter", "topic receiving meter readings")
	flag.StringVar(&cfg.Format, "format", "sample", "meter payload format (sample, shelly_em)")
	flag.DurationVar(&cfg.Interval, "interval", 5*time.Second, "reading publish interval")
	flag.Float64Var(&cfg.BaseWatts, "base", -2500, "household balance without loads, negative when exporting")
	flag.Float64Var(&cfg.NoiseWatts, "noise", 50, "random noise amplitude in watts")
	flag.StringVar(&cfg.Loads, "loads", "", "comma separated topic=watts pairs")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Parse()
	return cfg
}
