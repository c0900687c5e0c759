// knet-echo is a minimal echo server/client pair built on the knet-go
// reactor, useful for exercising a config.FrameworkConfig end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	knet "github.com/zaza89/knet-go"
	"github.com/zaza89/knet-go/config"
	"github.com/zaza89/knet-go/internal/klog"
)

func main() {
	configPath := flag.String("config", "", "path to a framework config YAML file")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: knet-echo -config path/to/framework.yaml")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "knet-echo: loading config:", err)
		os.Exit(1)
	}

	logger, err := klog.New(klog.Options{
		Path:  cfg.Logging.Path,
		Level: klog.ParseLevel(cfg.Logging.Level),
		Mode:  loggingMode(cfg.Logging),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "knet-echo: logger init:", err)
		os.Exit(1)
	}
	klog.SetGlobal(logger)
	defer logger.Close()

	fw, err := knet.NewFramework(cfg, knet.FrameworkCallbacks{
		Acceptor:  echoCallback,
		Connector: echoCallback,
	})
	if err != nil {
		klog.Errorf("building framework: %v", err)
		os.Exit(1)
	}

	if err := fw.Start(); err != nil {
		klog.Errorf("starting framework: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()

	klog.Infof("shutting down")
	fw.Stop()
}

func loggingMode(cfg config.LoggingConfig) klog.Mode {
	var mode klog.Mode
	if cfg.Console {
		mode |= klog.ModeConsole
	}
	if cfg.File {
		mode |= klog.ModeFile
	}
	if cfg.Flush {
		mode |= klog.ModeFlush
	}
	return mode
}

// echoCallback bounces whatever bytes it receives straight back to the
// sender, logs accept, connect and close at info level, closes a channel on
// idle timeout, and logs any other event at verbose level.
func echoCallback(ref *knet.Reference, event knet.CallbackEvent) {
	switch event {
	case knet.EventOnAccept, knet.EventOnConnect:
		klog.Infof("channel %s %s", ref.UUID(), event)
	case knet.EventOnRecv:
		stream := ref.Stream()
		buf := make([]byte, stream.Available())
		n := stream.Read(buf)
		if n > 0 {
			if err := ref.Write(buf[:n]); err != nil {
				klog.Warnf("channel %s echo write failed: %v", ref.UUID(), err)
			}
		}
	case knet.EventOnClose:
		klog.Infof("channel %s closed", ref.UUID())
	case knet.EventOnTimeout:
		klog.Verbf("channel %s idle timeout", ref.UUID())
		ref.Close()
	default:
		klog.Verbf("channel %s event %s", ref.UUID(), event)
	}
}
