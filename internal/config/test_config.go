package config

// LoadTestConfig returns fixed settings for tests. Nothing is read from the environment.
func LoadTestConfig() *Config {
	cfg := defaults()
	cfg.Server.Port = 8081
	cfg.Database.Name = "roleadmin_test"
	cfg.Database.User = "test_user"
	cfg.Database.Password = "test_password"
	cfg.JWT.Secret = "test-secret"
	cfg.RateLimit.Enabled = false
	cfg.Schedule.Refill = ""
	cfg.Schedule.Archive = ""
	return cfg
}
