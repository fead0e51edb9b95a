package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/api"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/device"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/distribution"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/engine"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/pool"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/profile"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/startup"
)

// The default mix must name a distribution preset that fits the default port
// range; the binary refuses to boot otherwise.
const (
	defaultMix       = "mixed_fleet"
	defaultPortStart = 30000
	defaultPortEnd   = 30999
)

func main() {
	// Configuration flags
	portStart := flag.Int("port-start", defaultPortStart, "Starting port for UDP listeners")
	portEnd := flag.Int("port-end", defaultPortEnd, "Ending port for UDP listeners")
	mixName := flag.String("mix", defaultMix, "Device mix preset: "+strings.Join(distribution.MixNames(), ","))
	mixFile := flag.String("mix-file", "", "Path to devices.yaml overriding --mix")
	populationFile := flag.String("population", "", "Path to population.yaml with ordered type counts")
	listenAddr := flag.String("listen", "0.0.0.0", "Listen address")
	maxDevices := flag.Int("max-devices", 10000, "Maximum concurrently active devices")
	idleTimeout := flag.Duration("idle-timeout", 30*time.Minute, "Evict devices idle longer than this")
	reaperInterval := flag.Duration("reaper-interval", time.Minute, "How often the idle reaper runs")
	prepopulate := flag.Bool("prepopulate", false, "Start the whole population at boot instead of lazily")
	workers := flag.Int("workers", 10, "Parallel workers for --prepopulate")
	taskTimeout := flag.Duration("task-timeout", 10*time.Second, "Per-device timeout for --prepopulate")
	snmprecFile := flag.String("snmprec", "", "Path to .snmprec overriding the built-in dataset")
	snmprecType := flag.String("snmprec-type", "cable_modem", "Device type the --snmprec dataset applies to")
	behaviorFile := flag.String("behaviors", "", "Path to behaviors.yaml overriding the built-in bindings")
	apiPort := flag.String("api-port", "8080", "Port for the HTTP API server")
	flag.Parse()

	portRange := distribution.PortRange{Start: *portStart, End: *portEnd}
	checkFileDescriptors(portRange.Size())

	specs, err := loadSpecs(*mixName, *mixFile, *populationFile)
	if err != nil {
		log.Fatalf("Invalid device mix: %v", err)
	}

	assignments, err := distribution.AssignSequential(specs, portRange)
	if err != nil {
		log.Fatalf("Failed to assign ports: %v", err)
	}

	library, err := profile.NewLibrary()
	if err != nil {
		log.Fatalf("Failed to build profiles: %v", err)
	}
	if err := applyOverrides(library, *snmprecFile, *snmprecType, *behaviorFile); err != nil {
		log.Fatalf("Failed to load profile overrides: %v", err)
	}

	devicePool := pool.New(pool.Config{
		IdleTimeout:    *idleTimeout,
		MaxDevices:     *maxDevices,
		ReaperInterval: *reaperInterval,
	}, library)

	listener, err := engine.NewListener(*listenAddr, devicePool, assignments)
	if err != nil {
		log.Fatalf("Failed to create listener: %v", err)
	}

	total := 0
	for _, spec := range specs {
		total += spec.Count
	}
	log.Printf("Starting SNMP fleet simulator")
	log.Printf("Port range: %d-%d (%d devices)", *portStart, *portEnd, total)
	log.Printf("Pool: max=%d idle-timeout=%s", *maxDevices, *idleTimeout)
	log.Printf("API port: %s (http://localhost:%s)", *apiPort, *apiPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := startup.NewManager(devicePool)

	apiServer := api.NewServer(":"+*apiPort, devicePool, manager)
	apiServer.SetListener(listener)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("Warning: API server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
	}()

	if err := listener.Start(ctx); err != nil {
		log.Fatalf("Failed to start listener: %v", err)
	}
	devicePool.StartReaper()

	if *prepopulate {
		result, err := manager.StartDevicePopulation(ctx, specs, startup.Options{
			PortRange:       portRange,
			ParallelWorkers: *workers,
			PerTaskTimeout:  *taskTimeout,
		})
		if err != nil {
			log.Printf("Warning: population startup incomplete: %v", err)
		}
		if result != nil {
			log.Printf("Population started: %d devices, %d failures", result.TotalDevices, len(result.Failures))
		}
	}

	log.Printf("Simulator started successfully")
	<-ctx.Done()

	log.Printf("Shutting down...")
	apiServer.Stop()
	listener.Stop()
	devicePool.StopReaper()
	devicePool.ShutdownAllDevices()
	log.Printf("Graceful shutdown complete")
}

// loadSpecs resolves the requested device mix into ordered type counts.
// Precedence: population file, then mix file, then preset.
func loadSpecs(mixName, mixFile, populationFile string) ([]distribution.TypeCount, error) {
	if populationFile != "" {
		return startup.LoadPopulationFile(populationFile)
	}

	var (
		mix distribution.Mix
		err error
	)
	if mixFile != "" {
		mix, err = distribution.LoadMixFile(mixFile)
	} else {
		mix, err = distribution.GetDeviceMix(mixName)
	}
	if err != nil {
		return nil, err
	}
	return startup.MixToSpecs(mix), nil
}

// applyOverrides swaps in file-loaded datasets and behavior bindings.
func applyOverrides(library *profile.Library, snmprecFile, snmprecType, behaviorFile string) error {
	var binder *profile.Binder
	if behaviorFile != "" {
		var err error
		binder, err = profile.LoadBinder(behaviorFile)
		if err != nil {
			return err
		}
	}

	if snmprecFile != "" {
		dt := device.Type(snmprecType)
		set, err := library.Set(dt)
		if err != nil {
			return err
		}
		store := profile.NewStore()
		n, err := profile.LoadSnmprec(store, snmprecFile)
		if err != nil {
			return err
		}
		log.Printf("Loaded %d OIDs from %s for %s", n, snmprecFile, dt)

		override := &profile.Set{Store: store, Binder: set.Binder}
		if binder != nil {
			override.Binder = binder
		}
		library.Override(dt, override)
		return nil
	}

	if binder != nil {
		// no dataset override, so rebind every built-in dataset
		for _, dt := range device.AllTypes {
			set, err := library.Set(dt)
			if err != nil {
				return err
			}
			library.Override(dt, &profile.Set{Store: set.Store, Binder: binder})
		}
	}
	return nil
}

func checkFileDescriptors(requiredFDs int) {
	var rlimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rlimit)
	if err != nil {
		log.Printf("Warning: Could not check file descriptor limit: %v", err)
		return
	}

	// one socket per port plus overhead for the API and actors
	requiredTotal := uint64(requiredFDs) + 100

	if rlimit.Cur < requiredTotal {
		log.Printf("Warning: Current file descriptor limit (%d) may be insufficient for %d ports (%d required)",
			rlimit.Cur, requiredFDs, requiredTotal)
		log.Printf("Increase with: ulimit -n %d", requiredTotal*2)
	}
}
