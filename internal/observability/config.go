package observability

// Config captures opt-in observability toggles that wire into the server.
type Config struct {
	// EnablePprofTrace mounts the net/http/pprof index, profile and trace
	// endpoints.
	EnablePprofTrace bool `yaml:"enable_pprof_trace"`
}
