package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/loadshift/api/status"
	"github.com/kilianp07/loadshift/config"
	"github.com/kilianp07/loadshift/core/controller"
	"github.com/kilianp07/loadshift/core/dispatch"
	"github.com/kilianp07/loadshift/core/events"
	coremetrics "github.com/kilianp07/loadshift/core/metrics"
	"github.com/kilianp07/loadshift/infra/command"
	"github.com/kilianp07/loadshift/infra/logger"
	"github.com/kilianp07/loadshift/infra/meter"
	"github.com/kilianp07/loadshift/infra/metrics"
	"github.com/kilianp07/loadshift/infra/mqtt"
	"github.com/kilianp07/loadshift/infra/shelly"
	"github.com/kilianp07/loadshift/internal/eventbus"
)

// simulationTick is the evaluation period when no meter feeds the loop.
const simulationTick = time.Second

// Service wires the controller to the meter, the device transports and the
// metrics sinks.
type Service struct {
	cfg    *config.Config
	ctl    *controller.Controller
	calls  *dispatch.CallDispatcher
	bus    *eventbus.TypedBus[events.Event]
	client *mqtt.Client
	sink   coremetrics.MetricsSink
	decode meter.Decoder
	log    logger.Logger
}

// New creates a Service from the configuration. The broker connection is
// opened here when any component needs it.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	decode, err := meter.New(cfg.Meter.Module())
	if err != nil {
		return nil, fmt.Errorf("meter format: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	var client *mqtt.Client
	if cfg.NeedsMQTT() {
		client, err = mqtt.Connect(cfg.MQTT, logger.New("mqtt"))
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
	}

	router := command.Router{HTTP: shelly.NewCommander(cfg.HTTP)}
	if client != nil {
		router.MQTT = mqtt.NewCommander(client, cfg.MQTT.QoSFor("command"), cfg.MQTT.RetainCommands)
	}
	if err := router.Validate(catalog); err != nil {
		disconnect(client)
		return nil, err
	}

	bus := eventbus.NewTyped[events.Event]()
	calls, err := dispatch.NewCallDispatcher(router, cfg.Control.Dispatch(), logger.New("dispatch"), controller.CompletionPublisher(bus))
	if err != nil {
		disconnect(client)
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	ctl, err := controller.New(
		controller.Config{Power: cfg.Control.Power(), Gate: cfg.Control.Gate()},
		catalog,
		calls,
		logger.New("controller"),
		controller.WithBus(bus),
	)
	if err != nil {
		_ = calls.Close()
		disconnect(client)
		return nil, fmt.Errorf("controller: %w", err)
	}

	return &Service{
		cfg:    cfg,
		ctl:    ctl,
		calls:  calls,
		bus:    bus,
		client: client,
		sink:   sink,
		decode: decode,
		log:    logg,
	}, nil
}

// Controller exposes the control loop.
func (s *Service) Controller() *controller.Controller { return s.ctl }

// Run starts every loop and blocks until ctx is cancelled or a component
// fails fatally.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	collected := s.bus.Subscribe()
	g.Go(func() error {
		return metrics.RunEventCollector(ctx, collected, s.sink, logger.New("collector"))
	})
	if topic := s.cfg.Events.Topic; topic != "" && s.client != nil {
		published := s.bus.Subscribe()
		pub := mqtt.NewEventPublisher(s.client, topic, s.cfg.MQTT.QoSFor("events"), logger.New("events"))
		g.Go(func() error { return pub.Run(ctx, published) })
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		routes := map[string]http.Handler{status.Path: status.NewStatusHandler(s.ctl)}
		g.Go(func() error { return metrics.StartPromServer(ctx, addr, nil, routes) })
	}

	// Assert the initial all-off state before the first reading arrives.
	if err := s.ctl.Tick(); err != nil {
		g.Go(func() error { return err })
		return g.Wait()
	}

	g.Go(func() error { return s.resyncLoop(ctx) })
	if topic := s.cfg.Meter.Topic; topic != "" {
		sub := mqtt.NewMeterSubscription(s.client, topic, s.cfg.MQTT.QoSFor("meter"), s.decode, s.ctl.HandleSample, logger.New("meter"))
		g.Go(func() error { return sub.Run(ctx) })
		s.log.Infof("listening for meter readings on %s", topic)
	} else {
		g.Go(func() error { return s.tickLoop(ctx) })
		s.log.Infof("simulation mode: evaluating every %s", simulationTick)
	}
	return g.Wait()
}

func (s *Service) resyncLoop(ctx context.Context) error {
	t := time.NewTicker(s.cfg.Control.SyncInterval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.ctl.Resync()
		}
	}
}

func (s *Service) tickLoop(ctx context.Context) error {
	t := time.NewTicker(simulationTick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := s.ctl.Tick(); err != nil {
				return err
			}
		}
	}
}

// Close drains the dispatcher and releases the connections.
func (s *Service) Close() error {
	err := s.calls.Close()
	s.bus.Close()
	if c, ok := s.sink.(coremetrics.Closer); ok {
		c.Close()
	}
	disconnect(s.client)
	if err != nil {
		return fmt.Errorf("dispatcher close: %w", err)
	}
	return nil
}

func disconnect(c *mqtt.Client) {
	if c != nil {
		c.Disconnect()
	}
}
