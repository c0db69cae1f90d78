package main

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/burntcarrot/nvspad/config"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"
)

// Flags represents the command-line flags that are passed to nvspad's client.
type Flags struct {
	Config     string
	Server     string
	Secure     bool
	Endpoint   string
	Namespace  string
	Watch      bool
	Positional bool
	Debug      bool
}

// parseFlags parses command-line flags.
func parseFlags() Flags {
	configPath := flag.String("config", "", "Path to a YAML config file")
	serverAddr := flag.String("server", "", "The network address of the NVS server")
	useSecureConn := flag.Bool("secure", false, "Use https:// and wss://")
	endpoint := flag.String("endpoint", "", "Path of the NVS endpoint on the server")
	namespace := flag.String("namespace", "", "Only show the entries of this namespace")
	enableWatch := flag.Bool("watch", false, "Follow changes made by other clients")
	enablePositional := flag.Bool("positional", false, "Make every cell editable; only the value column is saved")
	enableDebug := flag.Bool("debug", false, "Enable debugging mode to show more verbose logs")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage:\n  nvspad [flags]\n  nvspad [flags] set [namespace/]key=value...\n\nFlags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	return Flags{
		Config:     *configPath,
		Server:     *serverAddr,
		Secure:     *useSecureConn,
		Endpoint:   *endpoint,
		Namespace:  *namespace,
		Watch:      *enableWatch,
		Positional: *enablePositional,
		Debug:      *enableDebug,
	}
}

// loadConfig loads the config file and lets the flags that were set on the command line override it.
func loadConfig(flags Flags) (config.Client, error) {
	cfg, err := config.Load(flags.Config)
	if err != nil {
		return config.Client{}, err
	}
	c := cfg.Client

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			c.Server = flags.Server
		case "secure":
			c.Secure = flags.Secure
		case "endpoint":
			c.Endpoint = flags.Endpoint
		case "namespace":
			c.Namespace = flags.Namespace
		case "watch":
			c.Watch = flags.Watch
		case "positional":
			c.Positional = flags.Positional
		case "debug":
			c.Debug = flags.Debug
		}
	})

	return c, nil
}

// baseURL returns the HTTP base URL of the server.
func baseURL(cfg config.Client) string {
	u := url.URL{Scheme: "http", Host: cfg.Server}
	if cfg.Secure {
		u.Scheme = "https"
	}
	return u.String()
}

// createConn creates a WebSocket connection to the server's change feed.
func createConn(cfg config.Client, id uuid.UUID) (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: cfg.Server, Path: "/ws", RawQuery: "id=" + id.String()}
	if cfg.Secure {
		u.Scheme = "wss"
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.Timeout,
	}

	conn, _, err := dialer.Dial(u.String(), nil)
	return conn, err
}

// ensureDirExists ensures that a directory exists, and if it isn't present, it tries to create a new one.
func ensureDirExists(path string) (bool, error) {
	// Check if the directory exists
	if _, err := os.Stat(path); err == nil {
		return true, nil
	}

	// Create the directory
	err := os.Mkdir(path, 0700)
	if err != nil {
		return false, err
	}

	return true, nil
}

// logDir returns the directory the log files go to.
func logDir(cfg config.Client) string {
	if cfg.LogDir != "" {
		return cfg.LogDir
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".nvspad")
}

// setupLogger initializes the client's logger (logrus).
// The terminal belongs to the UI, so everything goes to log files.
func setupLogger(logger *logrus.Logger, cfg config.Client) (*os.File, *os.File, error) {
	dir := logDir(cfg)
	if _, err := ensureDirExists(dir); err != nil {
		return nil, nil, err
	}

	logPath := filepath.Join(dir, "nvspad.log")
	debugLogPath := filepath.Join(dir, "nvspad-debug.log")

	// Open the log file and create if it does not exist.
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // skipcq: GSC-G302
	if err != nil {
		return nil, nil, err
	}

	// Create a separate log file for verbose logs.
	debugLogFile, err := os.OpenFile(debugLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // skipcq: GSC-G302
	if err != nil {
		logFile.Close()
		return nil, nil, err
	}

	logger.SetOutput(io.Discard)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logger.SetLevel(logrus.TraceLevel)
	}

	logger.AddHook(&writer.Hook{
		Writer: logFile,
		LogLevels: []logrus.Level{
			logrus.WarnLevel,
			logrus.ErrorLevel,
			logrus.FatalLevel,
			logrus.PanicLevel,
		},
	})
	logger.AddHook(&writer.Hook{
		Writer: debugLogFile,
		LogLevels: []logrus.Level{
			logrus.TraceLevel,
			logrus.DebugLevel,
			logrus.InfoLevel,
		},
	})

	return logFile, debugLogFile, nil
}

// closeLogFiles closes the log files created by the client.
// closeLogFiles is meant to be used for defer calls.
func closeLogFiles(logFile, debugLogFile *os.File) {
	if err := logFile.Close(); err != nil {
		fmt.Printf("Failed to close log file: %s", err)
		return
	}

	if err := debugLogFile.Close(); err != nil {
		fmt.Printf("Failed to close debug log file: %s", err)
		return
	}
}
