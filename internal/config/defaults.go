package config

const (
	defaultDataDir                 = "~/.local/share/caseintake"
	defaultLogDir                  = "~/.local/share/caseintake/logs"
	defaultAPIBind                 = "127.0.0.1:7490"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultStaleAfterSeconds       = 180
	defaultTickSliceSize           = 50
	defaultOperationTimeoutSeconds = 5
	defaultInlineReceiveLimit      = 500
	defaultBreakerMaxFailures      = 5
	defaultBreakerOpenSeconds      = 30
	defaultSchedulerTickSeconds    = 6
	defaultPollStatusSeconds       = 2
	defaultPollTickSeconds         = 6
	defaultPollMaxAttempts         = 900
	defaultLockTTLSeconds          = 60
	defaultNotifyTimeoutSeconds    = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Intake: Intake{
			StaleAfterSeconds:       defaultStaleAfterSeconds,
			TickSliceSize:           defaultTickSliceSize,
			OperationTimeoutSeconds: defaultOperationTimeoutSeconds,
			InlineReceiveLimit:      defaultInlineReceiveLimit,
			BreakerMaxFailures:      defaultBreakerMaxFailures,
			BreakerOpenSeconds:      defaultBreakerOpenSeconds,
		},
		Scheduler: Scheduler{
			Enabled:             true,
			TickIntervalSeconds: defaultSchedulerTickSeconds,
		},
		Polling: Polling{
			StatusIntervalSeconds: defaultPollStatusSeconds,
			TickIntervalSeconds:   defaultPollTickSeconds,
			MaxAttempts:           defaultPollMaxAttempts,
		},
		Lock: Lock{
			TTLSeconds: defaultLockTTLSeconds,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
