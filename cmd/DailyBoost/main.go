package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BTreeMap/DailyBoost/internal/api"
	"github.com/BTreeMap/DailyBoost/internal/bot"
	"github.com/BTreeMap/DailyBoost/internal/genai"
	"github.com/BTreeMap/DailyBoost/internal/store"
	"github.com/BTreeMap/DailyBoost/internal/twiliowhatsapp"
	"github.com/BTreeMap/DailyBoost/internal/util"
	"github.com/BTreeMap/DailyBoost/internal/whatsapp"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultStateDir is the default directory for DailyBoost state data.
	DefaultStateDir = "/var/lib/dailyboost"
	// DefaultAppDBFileName is the application SQLite database filename.
	DefaultAppDBFileName = "dailyboost.db"
	// DefaultWhatsAppDBFileName is the whatsmeow SQLite database filename.
	DefaultWhatsAppDBFileName = "whatsmeow.db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}
	config := loadEnvironmentConfig()
	flags, err := parseFlags(os.Args[1:], config)
	if err != nil {
		os.Exit(2)
	}

	closer := initializeLogger(flags.debug, flags.logFile)
	defer closer.Close()

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping DailyBoost",
		"state_dir", flags.stateDir,
		"transport", flags.transport,
		"app_dsn_set", flags.appDSN != "",
		"api_addr", flags.apiAddr,
		"checkin", flags.checkinCron)
	if err := api.Run(buildWhatsAppOptions(flags), buildTwilioOptions(flags), buildStoreOptions(flags), buildGenAIOptions(flags), buildAPIOptions(flags)); err != nil {
		slog.Error("DailyBoost failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("DailyBoost exited successfully")
}

// Config holds environment configuration.
type Config struct {
	StateDir        string
	AppDSN          string
	WhatsAppDSN     string
	Transport       string
	TwilioSID       string
	TwilioToken     string
	TwilioFrom      string
	TwilioWebhook   string
	OpenAIKey       string
	OpenAIModel     string
	APIAddr         string
	CheckinCron     string
	PersistSessions bool
	LogFile         string
	Debug           bool
}

// Flags holds the effective settings after command line overrides.
type Flags struct {
	qrOutput        string
	numeric         bool
	stateDir        string
	appDSN          string
	waDSN           string
	transport       string
	twilioSID       string
	twilioToken     string
	twilioFrom      string
	twilioWebhook   string
	openaiKey       string
	openaiModel     string
	apiAddr         string
	checkinCron     string
	persistSessions bool
	logFile         string
	debug           bool
}

// loadEnvironmentConfig reads configuration from environment variables.
// Database locations are left empty here and derived from the state
// directory after flags are parsed.
func loadEnvironmentConfig() Config {
	return Config{
		StateDir:        util.GetEnv("DAILYBOOST_STATE_DIR", DefaultStateDir),
		AppDSN:          util.GetEnv("DATABASE_URL", ""),
		WhatsAppDSN:     util.GetEnv("WHATSAPP_DB_DSN", ""),
		Transport:       util.GetEnv("DAILYBOOST_TRANSPORT", api.TransportWhatsApp),
		TwilioSID:       util.GetEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioToken:     util.GetEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFrom:      util.GetEnv("TWILIO_FROM_NUMBER", ""),
		TwilioWebhook:   util.GetEnv("TWILIO_WEBHOOK_URL", ""),
		OpenAIKey:       util.GetEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     util.GetEnv("OPENAI_MODEL", genai.DefaultModel),
		APIAddr:         util.GetEnv("API_ADDR", api.DefaultAddr),
		CheckinCron:     util.GetEnv("CHECKIN_SCHEDULE", bot.DefaultCheckinSchedule),
		PersistSessions: util.ParseBoolEnv("DAILYBOOST_PERSIST_SESSIONS", false),
		LogFile:         util.GetEnv("DAILYBOOST_LOG_FILE", ""),
		Debug:           util.ParseBoolEnv("DAILYBOOST_DEBUG", false),
	}
}

// parseFlags applies command line overrides on top of the environment.
func parseFlags(args []string, config Config) (Flags, error) {
	var f Flags
	fs := flag.NewFlagSet("dailyboost", flag.ContinueOnError)
	fs.StringVar(&f.qrOutput, "qr-output", "", "path to write the WhatsApp login QR code")
	fs.BoolVar(&f.numeric, "numeric-code", false, "print the WhatsApp pairing code instead of a QR code")
	fs.StringVar(&f.stateDir, "state-dir", config.StateDir, "state directory (overrides $DAILYBOOST_STATE_DIR)")
	fs.StringVar(&f.appDSN, "db-dsn", config.AppDSN, "application database DSN, SQLite path or PostgreSQL URL (overrides $DATABASE_URL)")
	fs.StringVar(&f.waDSN, "whatsapp-db-dsn", config.WhatsAppDSN, "whatsmeow database DSN (overrides $WHATSAPP_DB_DSN)")
	fs.StringVar(&f.transport, "transport", config.Transport, "chat transport: whatsapp, twilio or none (overrides $DAILYBOOST_TRANSPORT)")
	fs.StringVar(&f.twilioSID, "twilio-account-sid", config.TwilioSID, "Twilio account SID (overrides $TWILIO_ACCOUNT_SID)")
	fs.StringVar(&f.twilioToken, "twilio-auth-token", config.TwilioToken, "Twilio auth token (overrides $TWILIO_AUTH_TOKEN)")
	fs.StringVar(&f.twilioFrom, "twilio-from", config.TwilioFrom, "Twilio WhatsApp sender number (overrides $TWILIO_FROM_NUMBER)")
	fs.StringVar(&f.twilioWebhook, "twilio-webhook-url", config.TwilioWebhook, "public webhook URL used to verify Twilio signatures (overrides $TWILIO_WEBHOOK_URL)")
	fs.StringVar(&f.openaiKey, "openai-api-key", config.OpenAIKey, "OpenAI API key for /insight (overrides $OPENAI_API_KEY)")
	fs.StringVar(&f.openaiModel, "openai-model", config.OpenAIModel, "OpenAI chat model (overrides $OPENAI_MODEL)")
	fs.StringVar(&f.apiAddr, "api-addr", config.APIAddr, "API server address (overrides $API_ADDR)")
	fs.StringVar(&f.checkinCron, "checkin-schedule", config.CheckinCron, "cron expression of the evening check-in (overrides $CHECKIN_SCHEDULE)")
	fs.BoolVar(&f.persistSessions, "persist-sessions", config.PersistSessions, "keep conversation sessions in the database (overrides $DAILYBOOST_PERSIST_SESSIONS)")
	fs.StringVar(&f.logFile, "log-file", config.LogFile, "also write logs to this rotating file (overrides $DAILYBOOST_LOG_FILE)")
	fs.BoolVar(&f.debug, "debug", config.Debug, "enable debug logging (overrides $DAILYBOOST_DEBUG)")
	if err := fs.Parse(args); err != nil {
		return f, err
	}

	if f.appDSN == "" {
		f.appDSN = filepath.Join(f.stateDir, DefaultAppDBFileName)
	}
	if f.waDSN == "" {
		f.waDSN = "file:" + filepath.Join(f.stateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
	}
	f.transport = strings.ToLower(strings.TrimSpace(f.transport))
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// initializeLogger installs a text slog handler on stdout and, when logFile
// is set, a rotating file sink.
func initializeLogger(debug bool, logFile string) io.Closer {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	var writer io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stdout, rotating)
		closer = rotating
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})))
	return closer
}

// sqlitePath returns the file behind a SQLite DSN, or "" for PostgreSQL.
func sqlitePath(dsn string) string {
	if store.DetectDSNType(dsn) == "postgres" {
		return ""
	}
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// ensureDirectoriesExist creates the state directory and the directories of
// file-based databases.
func ensureDirectoriesExist(flags Flags) error {
	dirs := []string{flags.stateDir}
	for _, dsn := range []string{flags.appDSN, flags.waDSN} {
		if p := sqlitePath(dsn); p != "" {
			dirs = append(dirs, filepath.Dir(p))
		}
	}
	if flags.logFile != "" {
		dirs = append(dirs, filepath.Dir(flags.logFile))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	opts := []whatsapp.Option{whatsapp.WithDBDSN(flags.waDSN)}
	if flags.qrOutput != "" {
		opts = append(opts, whatsapp.WithQRCodeOutput(flags.qrOutput))
	}
	if flags.numeric {
		opts = append(opts, whatsapp.WithNumericCode())
	}
	if flags.debug {
		opts = append(opts, whatsapp.WithLogLevel("DEBUG"))
	}
	return opts
}

func buildTwilioOptions(flags Flags) []twiliowhatsapp.Option {
	return []twiliowhatsapp.Option{
		twiliowhatsapp.WithAccountSID(flags.twilioSID),
		twiliowhatsapp.WithAuthToken(flags.twilioToken),
		twiliowhatsapp.WithFromWhats(flags.twilioFrom),
	}
}

func buildStoreOptions(flags Flags) []store.Option {
	if store.DetectDSNType(flags.appDSN) == "postgres" {
		return []store.Option{store.WithPostgresDSN(flags.appDSN)}
	}
	return []store.Option{store.WithSQLiteDSN(flags.appDSN)}
}

func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(flags.openaiKey))
	}
	if flags.openaiModel != "" {
		opts = append(opts, genai.WithModel(flags.openaiModel))
	}
	return opts
}

func buildAPIOptions(flags Flags) []api.Option {
	return []api.Option{
		api.WithAddr(flags.apiAddr),
		api.WithStateDir(flags.stateDir),
		api.WithTransport(flags.transport),
		api.WithCheckinCron(flags.checkinCron),
		api.WithPersistSessions(flags.persistSessions),
		api.WithWebhookURL(flags.twilioWebhook),
		api.WithOutboxInterval(5 * time.Second),
	}
}
