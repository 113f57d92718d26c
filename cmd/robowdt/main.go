package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"errors"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/robowdt/pkg/cli/sh"
	"github.com/robotalks/robowdt/pkg/console"
	fx "github.com/robotalks/robowdt/pkg/framework"
	"github.com/robotalks/robowdt/pkg/system"
	"github.com/robotalks/robowdt/pkg/telemetry/mqtt"
	"github.com/robotalks/robowdt/pkg/telemetry/websocket"
	"github.com/robotalks/robowdt/pkg/watchdog"
)

func init() {
	system.SetupFlags()
}

func main() {
	flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	conf := system.Default()
	runner := fx.NewRunner().HandleSignals()

	sinks := console.MultiSink{console.GlogSink{}}
	var pub *mqtt.Publisher
	if conf.MQTTBrokerURL != "" {
		var err error
		if pub, err = mqtt.NewPublisher(conf.MQTTBrokerURL, conf.OwnerID()); err != nil {
			glog.Exitf("mqtt: %v", err)
		}
		sinks = append(sinks, pub)
		runner.Go(fx.NamedRun("mqtt", pub))
	}
	if conf.WebsocketAddr != "" {
		hub := websocket.NewHub()
		sinks = append(sinks, hub)
		runner.Go(fx.NamedRun("websocket", &websocket.Server{Addr: conf.WebsocketAddr, Hub: hub}))
	}

	sys := conf.MustNewSystem(sinks)
	if pub != nil {
		sys.Reporters = append(sys.Reporters, pub)
		sys.OnBoot = func(b *system.Boot) { pub.SetBoot(b.Seq) }
	}
	runner.Go(fx.NamedRun("system", sys))
	if conf.Interactive {
		runner.Go(fx.NamedRun("shell", fx.RunFunc(func(ctx context.Context) error {
			return sh.New(sys).Run(ctx)
		})))
	}

	err := runner.Wait()
	var expired *watchdog.ExpiredError
	switch {
	case err == nil, errors.Is(err, sh.ErrQuit):
	case errors.As(err, &expired) && conf.MaxBoots > 0:
		glog.Infof("stopped after %d boots: %v", sys.Boots(), expired)
	default:
		glog.Exitln(err)
	}
}
