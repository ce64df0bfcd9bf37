package model

// Host represents a single rollout target. Fields are set at job creation
// and never mutated afterwards, so a Host is safe to share across workers.
type Host struct {
	Hostname              string `json:"hostname"`
	SSHUser               string `json:"ssh_user,omitempty"`
	SSHPort               int    `json:"ssh_port,omitempty"`
	SSHKeyPath            string `json:"ssh_key_path,omitempty"`
	TargetPath            string `json:"target_path"`
	UseElevatedPrivileges bool   `json:"use_elevated_privileges"`
}

// DefaultTargetPath is where the agent picks up integration configs.
const DefaultTargetPath = "/etc/newrelic-infra/integrations.d/"

// NewHost creates a host with the default transport settings.
func NewHost(hostname string) Host {
	return Host{
		Hostname:   hostname,
		SSHPort:    22,
		TargetPath: DefaultTargetPath,
	}
}
