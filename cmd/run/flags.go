package run

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}

func mustBindEnv(input ...string) {
	if err := viper.BindEnv(input...); err != nil {
		panic("failed to bind env key: " + err.Error())
	}
}

// bindRunFlags binds the cobra cmd flags to the equivalent config
// value being managed by viper. This bridges the config between cobra
// flags and viper flags.
func bindRunFlags(command *cobra.Command) {
	defaultConfig := DefaultConfig()
	flags := command.Flags()

	flags.String("http-addr", defaultConfig.HTTP.Addr, "the host:port address to serve the HTTP server on")
	mustBindPFlag("http.addr", flags.Lookup("http-addr"))
	mustBindEnv("http.addr", "GALLERIA_HTTP_ADDR")

	flags.StringSlice("http-cors-allowed-origins", defaultConfig.HTTP.CORSAllowedOrigins, "specifies the CORS allowed origins")
	mustBindPFlag("http.corsAllowedOrigins", flags.Lookup("http-cors-allowed-origins"))
	mustBindEnv("http.corsAllowedOrigins", "GALLERIA_HTTP_CORS_ALLOWED_ORIGINS")

	flags.String("authn-jwt-secret", defaultConfig.Authn.JWTSecret, "the shared secret used to verify bearer tokens")
	mustBindPFlag("authn.jwtSecret", flags.Lookup("authn-jwt-secret"))
	mustBindEnv("authn.jwtSecret", "GALLERIA_AUTHN_JWT_SECRET")

	flags.String("datastore-engine", defaultConfig.Datastore.Engine, "the datastore engine that will be used for persistence")
	mustBindPFlag("datastore.engine", flags.Lookup("datastore-engine"))
	mustBindEnv("datastore.engine", "GALLERIA_DATASTORE_ENGINE")

	flags.String("datastore-uri", defaultConfig.Datastore.URI, "the connection uri to use to connect to the datastore")
	mustBindPFlag("datastore.uri", flags.Lookup("datastore-uri"))
	mustBindEnv("datastore.uri", "GALLERIA_DATASTORE_URI")

	flags.Int("datastore-max-open-conns", defaultConfig.Datastore.MaxOpenConns, "the maximum number of open connections to the datastore")
	mustBindPFlag("datastore.maxOpenConns", flags.Lookup("datastore-max-open-conns"))
	mustBindEnv("datastore.maxOpenConns", "GALLERIA_DATASTORE_MAX_OPEN_CONNS")

	flags.Int("datastore-max-idle-conns", defaultConfig.Datastore.MaxIdleConns, "the maximum number of connections to the datastore in the idle connection pool")
	mustBindPFlag("datastore.maxIdleConns", flags.Lookup("datastore-max-idle-conns"))
	mustBindEnv("datastore.maxIdleConns", "GALLERIA_DATASTORE_MAX_IDLE_CONNS")

	flags.Duration("datastore-conn-max-idle-time", defaultConfig.Datastore.ConnMaxIdleTime, "the maximum amount of time a connection to the datastore may be idle")
	mustBindPFlag("datastore.connMaxIdleTime", flags.Lookup("datastore-conn-max-idle-time"))
	mustBindEnv("datastore.connMaxIdleTime", "GALLERIA_DATASTORE_CONN_MAX_IDLE_TIME")

	flags.Duration("datastore-conn-max-lifetime", defaultConfig.Datastore.ConnMaxLifetime, "the maximum amount of time a connection to the datastore may be reused")
	mustBindPFlag("datastore.connMaxLifetime", flags.Lookup("datastore-conn-max-lifetime"))
	mustBindEnv("datastore.connMaxLifetime", "GALLERIA_DATASTORE_CONN_MAX_LIFETIME")

	flags.String("log-format", defaultConfig.Log.Format, "the log format to output logs in")
	mustBindPFlag("log.format", flags.Lookup("log-format"))
	mustBindEnv("log.format", "GALLERIA_LOG_FORMAT")

	flags.String("log-level", defaultConfig.Log.Level, "the log level to use")
	mustBindPFlag("log.level", flags.Lookup("log-level"))
	mustBindEnv("log.level", "GALLERIA_LOG_LEVEL")

	flags.Bool("metrics-enabled", defaultConfig.Metrics.Enabled, "enable/disable prometheus metrics on the metrics address")
	mustBindPFlag("metrics.enabled", flags.Lookup("metrics-enabled"))
	mustBindEnv("metrics.enabled", "GALLERIA_METRICS_ENABLED")

	flags.String("metrics-addr", defaultConfig.Metrics.Addr, "the host:port address to serve the prometheus metrics server on")
	mustBindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
	mustBindEnv("metrics.addr", "GALLERIA_METRICS_ADDR")
}
