package config

type Config struct {
	Recon    ReconConf    `json:"recon"`
	Inbox    InboxConf    `json:"inbox"`
	LLM      LlmConf      `json:"llm"`
	Telegram TelegramConf `json:"telegram"`
	Auth     AuthConf     `json:"auth"`
}

type ReconConf struct {
	// Tolerance below which an absolute difference counts as a Match, default 1.0
	MatchTolerance float64 `json:"match_tolerance"`
	// Absolute difference above which a break is a Large Difference, default 10000
	LargeDifference float64 `json:"large_difference"`
	// Relative change from the previous difference that counts as Significant Variance, default 0.5
	VarianceRatio float64 `json:"variance_ratio"`
	// Expected outlier fraction for the anomaly model, default 0.05
	Contamination float64 `json:"contamination"`
	// Seed for the anomaly model, default 42
	Seed int64 `json:"seed"`
}

func (c ReconConf) MatchToleranceOrDefault() float64 {
	if c.MatchTolerance > 0 {
		return c.MatchTolerance
	}
	return 1.0
}

func (c ReconConf) LargeDifferenceOrDefault() float64 {
	if c.LargeDifference > 0 {
		return c.LargeDifference
	}
	return 10000.0
}

func (c ReconConf) VarianceRatioOrDefault() float64 {
	if c.VarianceRatio > 0 {
		return c.VarianceRatio
	}
	return 0.5
}

func (c ReconConf) ContaminationOrDefault() float64 {
	if c.Contamination > 0 && c.Contamination < 1 {
		return c.Contamination
	}
	return 0.05
}

func (c ReconConf) SeedOrDefault() int64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return 42
}

type InboxConf struct {
	Enabled         bool   `json:"enabled"`          // scan a directory for new batch files
	Dir             string `json:"dir"`              // inbox directory with incoming CSV feeds
	IntervalMinutes int    `json:"interval_minutes"` // scan period in minutes, default 10
}

type LlmConf struct {
	BaseURL          string `json:"base_url"`
	APIKey           string `json:"api_key"`
	Model            string `json:"model"`
	ProxyURL         string `json:"proxy_url"`          // e.g. http://127.0.0.1:7890
	MaxBreakComments int    `json:"max_break_comments"` // cap on per-break narrative calls per batch, default 20
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}

type AuthConf struct {
	JWTSecret string `json:"jwt_secret"` // random secret generated at startup when empty
}
