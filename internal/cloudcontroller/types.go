package cloudcontroller

import "strings"

// AppState is the desired state of an application.
type AppState string

const (
	AppStopped AppState = "STOPPED"
	AppStarted AppState = "STARTED"
)

// PackageState is the staging state of an application's package.
type PackageState string

const (
	PackagePending PackageState = "PENDING"
	PackageStaged  PackageState = "STAGED"
	PackageFailed  PackageState = "FAILED"
)

// Info is the subset of /v2/info used for log streaming and login.
type Info struct {
	Name                   string `json:"name"`
	APIVersion             string `json:"api_version"`
	AuthorizationEndpoint  string `json:"authorization_endpoint"`
	TokenEndpoint          string `json:"token_endpoint"`
	DopplerLoggingEndpoint string `json:"doppler_logging_endpoint"`
	LoggingEndpoint        string `json:"logging_endpoint"`
}

// AppSummary is a point-in-time runtime snapshot of an application.
type AppSummary struct {
	GUID             string       `json:"guid"`
	Name             string       `json:"name"`
	State            AppState     `json:"state"`
	Instances        int          `json:"instances"`
	RunningInstances int          `json:"running_instances"`
	PackageState     PackageState `json:"package_state"`
}

// Stopped reports whether the controller considers the app stopped.
func (s AppSummary) Stopped() bool {
	return strings.EqualFold(string(s.State), string(AppStopped))
}

type metadata struct {
	GUID string `json:"guid"`
}

type resource[E any] struct {
	Metadata metadata `json:"metadata"`
	Entity   E        `json:"entity"`
}

type page[E any] struct {
	TotalResults int           `json:"total_results"`
	Resources    []resource[E] `json:"resources"`
}

type namedEntity struct {
	Name string `json:"name"`
}

type updateAppRequest struct {
	State AppState `json:"state"`
}
