// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "seedpix")
	viper.SetDefault("main.log.enabled", false)
	viper.SetDefault("main.log.path", "seedpix.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("catalog.input", "pricelist.xlsx")
	viper.SetDefault("catalog.output", "image_urls.csv")
	viper.SetDefault("catalog.limit", 0)

	viper.SetDefault("probe.host", "https://www.jelitto.com")
	viper.SetDefault("probe.concurrency", 25)
	viper.SetDefault("probe.timeout", 10*time.Second)

	viper.SetDefault("scrape.host", "https://commons.wikimedia.org")
	viper.SetDefault("scrape.concurrency", 50)
	viper.SetDefault("scrape.timeout", 15*time.Second)
	viper.SetDefault("scrape.requestspersecond", 10.0)
	viper.SetDefault("scrape.useragent", "")
}
