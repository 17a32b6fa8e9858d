package auction

import "time"

// Config 服务总配置，config/auction-service.yaml
type Config struct {
	Name     string     `mapstructure:"name" yaml:"name"`
	LogLevel string     `mapstructure:"logLevel" yaml:"logLevel"`
	HTTP     HTTPConfig `mapstructure:"http" yaml:"http"`
	DB       DBConfig   `mapstructure:"db" yaml:"db"`
	Nats     NatsConfig `mapstructure:"nats" yaml:"nats"`
	House    HouseConf  `mapstructure:"house" yaml:"house"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type DBConfig struct {
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	MaxIdle     int    `mapstructure:"maxIdle" yaml:"maxIdle"`
	MaxOpen     int    `mapstructure:"maxOpen" yaml:"maxOpen"`
	MaxLifetime int    `mapstructure:"maxLifetime" yaml:"maxLifetime"`
}

type NatsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
	Subject string `mapstructure:"subject" yaml:"subject"`
}

// HouseConf 拍卖行的经济与节流参数
type HouseConf struct {
	// TickSeconds 结算 tick 周期
	TickSeconds int `mapstructure:"tickSeconds" yaml:"tickSeconds"`
	// CutRatePct 默认抽成百分比
	CutRatePct int `mapstructure:"cutRatePct" yaml:"cutRatePct"`
	// GoblinCutRatePct 地精中立行抽成百分比
	GoblinCutRatePct int `mapstructure:"goblinCutRatePct" yaml:"goblinCutRatePct"`

	// QueryPerMinute 普通客户端每分钟查询配额
	QueryPerMinute int `mapstructure:"queryPerMinute" yaml:"queryPerMinute"`
	// QueryMinDelayMs 普通客户端两次查询的最小间隔
	QueryMinDelayMs int `mapstructure:"queryMinDelayMs" yaml:"queryMinDelayMs"`
	// BotQueryPerMinute 自动化客户端（插件批量扫描）配额
	BotQueryPerMinute int `mapstructure:"botQueryPerMinute" yaml:"botQueryPerMinute"`
	// BotQueryMinDelayMs 自动化客户端最小间隔
	BotQueryMinDelayMs int `mapstructure:"botQueryMinDelayMs" yaml:"botQueryMinDelayMs"`

	// PendingDepositSeconds 批量挂单押金预留的有效期
	PendingDepositSeconds int `mapstructure:"pendingDepositSeconds" yaml:"pendingDepositSeconds"`
}

func (c *HouseConf) withDefaults() HouseConf {
	out := *c
	if out.TickSeconds <= 0 {
		out.TickSeconds = 1
	}
	if out.CutRatePct <= 0 {
		out.CutRatePct = 5
	}
	if out.GoblinCutRatePct <= 0 {
		out.GoblinCutRatePct = 15
	}
	if out.QueryPerMinute <= 0 {
		out.QueryPerMinute = 100
	}
	if out.QueryMinDelayMs <= 0 {
		out.QueryMinDelayMs = 2000
	}
	if out.BotQueryPerMinute <= 0 {
		out.BotQueryPerMinute = 300
	}
	if out.BotQueryMinDelayMs <= 0 {
		out.BotQueryMinDelayMs = 100
	}
	if out.PendingDepositSeconds <= 0 {
		out.PendingDepositSeconds = 30
	}
	return out
}

func (c *HouseConf) Tick() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}
