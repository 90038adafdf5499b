// Package dependency wires the wadash services using go.uber.org/dig.
package dependency

import (
	"fmt"

	"go.uber.org/dig"

	"github.com/crystaldolphin/wadash/internal/bus"
	"github.com/crystaldolphin/wadash/internal/config"
	"github.com/crystaldolphin/wadash/internal/connection"
	"github.com/crystaldolphin/wadash/internal/driver"
	"github.com/crystaldolphin/wadash/internal/gateway"
	"github.com/crystaldolphin/wadash/internal/notify"
	"github.com/crystaldolphin/wadash/internal/schedule"
	"github.com/crystaldolphin/wadash/internal/schema"
	"github.com/crystaldolphin/wadash/internal/server"
	"github.com/crystaldolphin/wadash/internal/watchdog"
)

// Container holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg       *config.Config
	stateBus  *bus.Bus
	driver    schema.Driver
	session   *connection.Session
	gateway   *gateway.Gateway
	server    *server.Server
	watchdog  *watchdog.Service
	scheduler *schedule.Scheduler
	notifier  *notify.Notifier
}

func (c *Container) Config() *config.Config         { return c.cfg }
func (c *Container) Bus() *bus.Bus                  { return c.stateBus }
func (c *Container) Driver() schema.Driver          { return c.driver }
func (c *Container) Session() *connection.Session   { return c.session }
func (c *Container) Gateway() *gateway.Gateway      { return c.gateway }
func (c *Container) Server() *server.Server         { return c.server }
func (c *Container) Watchdog() *watchdog.Service    { return c.watchdog }
func (c *Container) Scheduler() *schedule.Scheduler { return c.scheduler }
func (c *Container) Notifier() *notify.Notifier     { return c.notifier }

// New builds and wires all services from cfg. cfg must already be validated.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		newBus,
		driver.New,
		newSession,
		newGateway,
		newServer,
		newWatchdog,
		newScheduler,
		newNotifier,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, fmt.Errorf("provide: %w", err)
		}
	}

	var result *Container
	err := d.Invoke(func(
		stateBus *bus.Bus,
		drv schema.Driver,
		sess *connection.Session,
		gw *gateway.Gateway,
		srv *server.Server,
		wd *watchdog.Service,
		sched *schedule.Scheduler,
		n *notify.Notifier,
	) {
		result = &Container{
			cfg:       cfg,
			stateBus:  stateBus,
			driver:    drv,
			session:   sess,
			gateway:   gw,
			server:    srv,
			watchdog:  wd,
			scheduler: sched,
			notifier:  n,
		}
	})
	if err != nil {
		return nil, fmt.Errorf("build services: %w", dig.RootCause(err))
	}
	return result, nil
}

func newBus(cfg *config.Config) *bus.Bus {
	return bus.New(cfg.Session.ObserverBacklog)
}

func newSession(d schema.Driver, b *bus.Bus) *connection.Session {
	return connection.New(d, b)
}

func newGateway(sess *connection.Session) *gateway.Gateway {
	return gateway.New(sess)
}

func newServer(cfg *config.Config, sess *connection.Session, gw *gateway.Gateway) *server.Server {
	return server.New(cfg.Server, sess, gw)
}

func newWatchdog(cfg *config.Config, sess *connection.Session, gw *gateway.Gateway) *watchdog.Service {
	return watchdog.NewService(cfg.Session, sess, gw)
}

func newScheduler(cfg *config.Config, gw *gateway.Gateway) (*schedule.Scheduler, error) {
	return schedule.New(cfg.Session.RestartSchedule, gw)
}

func newNotifier(cfg *config.Config, sess *connection.Session) (*notify.Notifier, error) {
	phases, err := cfg.NotifyPhases()
	if err != nil {
		return nil, err
	}
	return notify.New(sess, notify.Senders(cfg.Channels), phases), nil
}
