package version

// Version is the current application version. It is a var so release builds
// can set it:
//
//	go build -ldflags "-X github.com/vanderheijden86/beanwork/pkg/version.Version=v0.2.0"
var Version = "v0.1.0-dev"
