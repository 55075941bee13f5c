package common

// These variables are injected at build time using -ldflags
var (
	VERSION = "dev"
	COMMIT  = "unknown"
)

func GetVersion() string {
	if VERSION == "dev" {
		return "0.1.0-dev"
	}
	return VERSION
}
