package version

// Tag is the release tag reported by the info endpoint. It is overridden at
// build time with -ldflags "-X github.com/dressinghq/dressinghub/pkg/version.Tag=vX.Y.Z".
var Tag = "v0.3.0"
