package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Akashic-Trance-Machines/pico-303/internal/config"
	"github.com/Akashic-Trance-Machines/pico-303/internal/display"
	"github.com/Akashic-Trance-Machines/pico-303/internal/engine"
	"github.com/Akashic-Trance-Machines/pico-303/internal/hwio"
	"github.com/Akashic-Trance-Machines/pico-303/internal/midilink"
	"github.com/Akashic-Trance-Machines/pico-303/internal/panel"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("panel303 v%s\n", version)
	fmt.Println("Front panel daemon for the pico-303 sound engine")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  panel303 [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that turns a rotary encoder with a push button into the control")
	fmt.Println("  surface of the pico-303 synth. Browse mode scrolls through the parameter")
	fmt.Println("  table, edit mode changes the selected value; changes are pushed to the")
	fmt.Println("  sound engine over WebSocket and optionally mirrored to MIDI. A 16x2 OLED")
	fmt.Println("  shows the current parameter, and web front panels can follow along on")
	fmt.Println("  the state websocket.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (flags override file values)")
	fmt.Println()
	fmt.Println("  -gpio-backend string")
	fmt.Println("        GPIO backend: chardev|rpio|sim (default \"chardev\")")
	fmt.Println()
	fmt.Println("  -gpio-device string")
	fmt.Printf("        GPIO character device for the chardev backend (default \"/dev/gpiochip0\")\n")
	fmt.Println()
	fmt.Println("  -pin-a int")
	fmt.Println("        Encoder phase A line offset (default 6)")
	fmt.Println()
	fmt.Println("  -pin-b int")
	fmt.Println("        Encoder phase B line offset (default 7)")
	fmt.Println()
	fmt.Println("  -pin-button int")
	fmt.Println("        Encoder push switch line offset (default 8)")
	fmt.Println()
	fmt.Println("  -engine")
	fmt.Println("        Enable the sound-engine websocket link (default true)")
	fmt.Println()
	fmt.Println("  -engine-ws-url string")
	fmt.Printf("        pico-303 engine websocket URL (default \"ws://127.0.0.1:3303\")\n")
	fmt.Println()
	fmt.Println("  -engine-ws-timeout-ms int")
	fmt.Println("        Timeout for engine websocket responses in ms (default 500)")
	fmt.Println()
	fmt.Println("  -display")
	fmt.Println("        Enable the 16x2 OLED display (default true)")
	fmt.Println()
	fmt.Println("  -display-bus int")
	fmt.Println("        I2C bus number for the display (default 1)")
	fmt.Println()
	fmt.Println("  -display-addr int")
	fmt.Println("        I2C address of the display (default 0x3c)")
	fmt.Println()
	fmt.Println("  -midi")
	fmt.Println("        Enable MIDI mirroring of parameter changes (default false)")
	fmt.Println()
	fmt.Println("  -midi-in string")
	fmt.Println("        MIDI input port name substring (empty matches the first port)")
	fmt.Println()
	fmt.Println("  -midi-out string")
	fmt.Println("        MIDI output port name substring (empty matches the first port)")
	fmt.Println()
	fmt.Println("  -midi-channel int")
	fmt.Println("        MIDI channel 0-15 for sent and accepted CC messages (default 0)")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default \"/tmp/pico303-panel.sock\")\n")
	fmt.Println()
	fmt.Println("  -state-ws")
	fmt.Println("        Enable the state websocket server (default true)")
	fmt.Println()
	fmt.Println("  -state-ws-port int")
	fmt.Println("        State websocket listener port (default 3304)")
	fmt.Println()
	fmt.Println("  -update-hz int")
	fmt.Println("        Panel update loop frequency in Hz (default 200)")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with defaults (chardev GPIO, local engine, display on)")
	fmt.Println("  panel303")
	fmt.Println()
	fmt.Println("  # Use a config file, override just the log level")
	fmt.Println("  panel303 -config /etc/pico303/panel.yml -log-level debug")
	fmt.Println()
	fmt.Println("  # Develop without hardware against a remote engine")
	fmt.Println("  panel303 -gpio-backend sim -display=false -engine-ws-url ws://10.0.0.5:3303")
	fmt.Println()
	fmt.Println("  # Mirror knob movements to a hardware sequencer")
	fmt.Println("  panel303 -midi -midi-out \"UM-ONE\" -midi-channel 0")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - The chardev backend needs read/write access to the GPIO character")
	fmt.Println("    device (run as root or add the user to the 'gpio' group)")
	fmt.Println("  - The engine link expects a running pico-303 engine with its websocket")
	fmt.Println("    control port enabled")
	fmt.Println("  - On startup the current engine parameter values are fetched and shown;")
	fmt.Println("    if the fetch fails the daemon keeps the built-in defaults")
	fmt.Println()
}

func main() {
	// Check for version/help flags early (before flag parsing errors)
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	def := config.DefaultConfig()

	// Parse command-line flags. Defaults mirror the built-in config so the
	// help output tells the truth; only flags the user actually passed are
	// applied over the config file (see flag.Visit below).
	var (
		configPath = flag.String("config", "", "Path to YAML config file")

		gpioBackend = flag.String("gpio-backend", def.GPIO.Backend, "GPIO backend: chardev|rpio|sim")
		gpioDevice  = flag.String("gpio-device", def.GPIO.Device, "GPIO character device for the chardev backend")
		pinA        = flag.Int("pin-a", def.GPIO.PinA, "Encoder phase A line offset")
		pinB        = flag.Int("pin-b", def.GPIO.PinB, "Encoder phase B line offset")
		pinButton   = flag.Int("pin-button", def.GPIO.PinButton, "Encoder push switch line offset")

		engineEnabled   = flag.Bool("engine", def.Engine.Enabled, "Enable the sound-engine websocket link")
		engineWsURL     = flag.String("engine-ws-url", def.Engine.WsURL, "pico-303 engine websocket URL")
		engineTimeoutMs = flag.Int("engine-ws-timeout-ms", def.Engine.TimeoutMS, "Timeout in milliseconds for engine websocket responses")

		displayEnabled = flag.Bool("display", def.Display.Enabled, "Enable the 16x2 OLED display")
		displayBus     = flag.Int("display-bus", def.Display.Bus, "I2C bus number for the display")
		displayAddr    = flag.Int("display-addr", def.Display.Addr, "I2C address of the display")

		midiEnabled = flag.Bool("midi", def.MIDI.Enabled, "Enable MIDI mirroring of parameter changes")
		midiIn      = flag.String("midi-in", def.MIDI.InPort, "MIDI input port name substring")
		midiOut     = flag.String("midi-out", def.MIDI.OutPort, "MIDI output port name substring")
		midiChannel = flag.Int("midi-channel", def.MIDI.Channel, "MIDI channel 0-15 for sent and accepted CC messages")

		ipcSocketPath = flag.String("ipc-socket", def.IPC.SocketPath, "Unix domain socket path for IPC")

		stateWsEnabled = flag.Bool("state-ws", def.StateWS.Enabled, "Enable the state websocket server")
		stateWsPort    = flag.Int("state-ws-port", def.StateWS.Port, "State websocket listener port")

		updateHz = flag.Int("update-hz", def.Panel.UpdateHz, "Panel update loop frequency in Hz")

		logLevelStr = flag.String("log-level", def.Logging.Level, "Log level: error, warn, info, debug")
		showVersion = flag.Bool("version", false, "Print version and exit")
		showHelp    = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Load config file (if any), then layer explicitly-passed flags on top.
	cfg := def
	if *configPath != "" {
		loaded, err := config.LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var ov config.FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "gpio-backend":
			ov.GPIOBackend = gpioBackend
		case "gpio-device":
			ov.GPIODevice = gpioDevice
		case "pin-a":
			ov.GPIOPinA = pinA
		case "pin-b":
			ov.GPIOPinB = pinB
		case "pin-button":
			ov.GPIOPinButton = pinButton
		case "engine":
			ov.EngineEnabled = engineEnabled
		case "engine-ws-url":
			ov.EngineWsURL = engineWsURL
		case "engine-ws-timeout-ms":
			ov.EngineTimeoutMS = engineTimeoutMs
		case "display":
			ov.DisplayEnabled = displayEnabled
		case "display-bus":
			ov.DisplayBus = displayBus
		case "display-addr":
			ov.DisplayAddr = displayAddr
		case "midi":
			ov.MIDIEnabled = midiEnabled
		case "midi-in":
			ov.MIDIInPort = midiIn
		case "midi-out":
			ov.MIDIOutPort = midiOut
		case "midi-channel":
			ov.MIDIChannel = midiChannel
		case "ipc-socket":
			ov.IPCSocketPath = ipcSocketPath
		case "state-ws":
			ov.StateWSEnabled = stateWsEnabled
		case "state-ws-port":
			ov.StateWSPort = stateWsPort
		case "update-hz":
			ov.PanelUpdateHz = updateHz
		case "log-level":
			ov.LogLevel = logLevelStr
		}
	})
	ov.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	// Handle shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the GPIO lines for the encoder and button.
	var lines hwio.Lines
	switch cfg.GPIO.Backend {
	case config.BackendChardev:
		lines, err = hwio.OpenChardev(cfg.GPIO.Device, cfg.GPIO.PinA, cfg.GPIO.PinB, cfg.GPIO.PinButton)
	case config.BackendRPIO:
		lines, err = hwio.OpenRPIO(cfg.GPIO.PinA, cfg.GPIO.PinB, cfg.GPIO.PinButton)
	case config.BackendSim:
		logger.Info("sim GPIO backend selected, no hardware will be touched")
		lines = hwio.NewSim()
	}
	if err != nil {
		logger.Error("failed to open GPIO lines", "backend", cfg.GPIO.Backend, "error", err,
			"tip", "run as root or add user to the 'gpio' group")
		os.Exit(1)
	}
	defer lines.Close()

	// Build the input pipeline and baseline it against the real line state,
	// so a button held across startup doesn't fire a phantom press.
	table := panel.NewTable(cfg.TableParams())
	move := &panel.Movement{}
	dec := panel.NewDecoder(lines, move)
	btn := panel.NewButton(lines)

	now := time.Now()
	dec.Prime(now)
	btn.Prime(now)

	pnl := panel.New(table, move, btn)

	// Connect to the sound engine and pull the patch it is currently playing.
	// This happens before the change handler is installed: preset values are
	// mirrored silently, they must not be echoed back as change messages.
	var eng *engine.WSClient
	if cfg.Engine.Enabled {
		eng, err = engine.NewWSClient(cfg.Engine.WsURL, logger, cfg.Engine.TimeoutMS)
		if err != nil {
			logger.Error("failed to connect to sound engine", "url", cfg.Engine.WsURL, "error", err)
			os.Exit(1)
		}
		defer eng.Close()

		if v, err := eng.GetVersion(); err != nil {
			logger.Warn("could not query engine version", "error", err)
		} else {
			logger.Info("sound engine connected", "url", cfg.Engine.WsURL, "engine_version", v)
		}

		if params, err := eng.GetParams(); err != nil {
			logger.Warn("could not fetch engine parameters, keeping defaults", "error", err)
		} else {
			for _, pv := range params {
				table.SetByControlID(pv.ControlID, pv.Value)
			}
			logger.Debug("engine parameters mirrored", "count", len(params))
		}
	}

	// Open the front panel display.
	var screen *display.Renderer
	if cfg.Display.Enabled {
		oled, err := display.OpenSO1602(cfg.Display.Bus, cfg.Display.Addr)
		if err != nil {
			logger.Error("failed to open display", "bus", cfg.Display.Bus, "addr", cfg.Display.Addr, "error", err)
			os.Exit(1)
		}
		defer oled.Close()
		screen = display.NewRenderer(oled)
	}

	// MIDI mirroring: knob movements out, sequencer CCs in.
	var (
		midiSender *midilink.Sender
		mirrors    chan midilink.Mirror
	)
	if cfg.MIDI.Enabled {
		defer midilink.CloseDriver()

		midiSender, err = midilink.NewSender(cfg.MIDI.OutPort, uint8(cfg.MIDI.Channel), logger)
		if err != nil {
			logger.Error("failed to open MIDI output", "port", cfg.MIDI.OutPort, "error", err)
			os.Exit(1)
		}
		defer midiSender.Close()

		mirrors = make(chan midilink.Mirror, 64)
		receiver, err := midilink.NewReceiver(cfg.MIDI.InPort, uint8(cfg.MIDI.Channel), mirrors, logger)
		if err != nil {
			logger.Error("failed to open MIDI input", "port", cfg.MIDI.InPort, "error", err)
			os.Exit(1)
		}
		defer receiver.Close()
	}

	// Install the change handler last: from here on every edit made on the
	// panel fans out to the engine and (optionally) to MIDI.
	table.SetChangeHandler(panel.ChangeHandlerFunc(func(controlID, value uint8) {
		if eng != nil {
			if err := eng.SetParam(controlID, value); err != nil {
				logger.Warn("engine SetParam failed", "control_id", controlID, "value", value, "error", err)
			}
		}
		if midiSender != nil {
			midiSender.ParameterChanged(controlID, value)
		}
	}))

	// Create request channel - central command bus
	requests := make(chan Request, 64)

	var (
		stateServer *Server
		hub         *Hub
	)
	if cfg.StateWS.Enabled {
		stateServer = NewServer(logger, requests, ServerConfig{})
		hub = stateServer.Hub()
	}

	logger.Debug("configuration",
		"gpio_backend", cfg.GPIO.Backend,
		"gpio_device", cfg.GPIO.Device,
		"pin_a", cfg.GPIO.PinA,
		"pin_b", cfg.GPIO.PinB,
		"pin_button", cfg.GPIO.PinButton,
		"engine_enabled", cfg.Engine.Enabled,
		"engine_ws_url", cfg.Engine.WsURL,
		"engine_ws_timeout_ms", cfg.Engine.TimeoutMS,
		"display_enabled", cfg.Display.Enabled,
		"midi_enabled", cfg.MIDI.Enabled,
		"ipc_socket", cfg.IPC.SocketPath,
		"state_ws_enabled", cfg.StateWS.Enabled,
		"state_ws_port", cfg.StateWS.Port,
		"update_hz", cfg.Panel.UpdateHz,
		"params", table.Count())
	logger.Info("panel303 starting",
		"version", version,
		"gpio_backend", cfg.GPIO.Backend,
		"ipc", cfg.IPC.SocketPath,
		"engine_ws", cfg.Engine.WsURL,
		"update_hz", cfg.Panel.UpdateHz)

	g, ctx := errgroup.WithContext(ctx)

	// Edge watcher: feeds raw encoder transitions into the decoder.
	g.Go(func() error {
		return lines.Watch(ctx, dec.Edge)
	})

	// Daemon brain: polls the panel, drains requests, publishes state.
	g.Go(func() error {
		return runDaemon(ctx, requests, mirrors, pnl, screen, hub, cfg.Panel.UpdateHz, logger)
	})

	// IPC server for panelctl and scripting.
	g.Go(func() error {
		return runIPCServer(ctx, cfg.IPC.SocketPath, requests, logger)
	})

	// State websocket for web front panels.
	if cfg.StateWS.Enabled {
		g.Go(func() error {
			hub.Run(ctx)
			return nil
		})
		g.Go(func() error {
			return runStateWSServer(ctx, cfg.StateWS.Port, stateServer, logger)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}
