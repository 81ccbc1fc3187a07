// Package config loads the scraper configuration.
//
// Values come, in increasing precedence, from struct-tag defaults, a config
// file (config.json by default, any format viper reads), a .env file and the
// process environment. Environment keys carry the MEETUP_ prefix and use
// underscores for nesting, e.g. MEETUP_SLACK_WEBHOOK_URL.
package config
