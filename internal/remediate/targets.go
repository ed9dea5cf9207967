package remediate

import (
	"fmt"
	"os"

	goyaml "gopkg.in/yaml.v3"
)

// Targets names the infrastructure the generated commands act on.
type Targets struct {
	GatewayDeployment string `yaml:"gateway_deployment"`
	BackendDeployment string `yaml:"backend_deployment"`
	ConfigMap         string `yaml:"config_map"`
	GatewaySelector   string `yaml:"gateway_selector"`
	ScaleReplicas     int    `yaml:"scale_replicas"`
	CombinedReplicas  int    `yaml:"combined_replicas"`
	EmergencyReplicas int    `yaml:"emergency_replicas"`
	ReducedMaxTokens  int    `yaml:"reduced_max_tokens"`
	LogTail           int    `yaml:"log_tail"`
}

func DefaultTargets() Targets {
	return Targets{
		GatewayDeployment: "llm-gateway",
		BackendDeployment: "llm-backend",
		ConfigMap:         "llm-config",
		GatewaySelector:   "app=gateway",
		ScaleReplicas:     5,
		CombinedReplicas:  6,
		EmergencyReplicas: 10,
		ReducedMaxTokens:  50,
		LogTail:           100,
	}
}

// LoadTargets reads the remediation section of a policy file on top of the defaults.
func LoadTargets(path string) (Targets, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Targets{}, err
	}
	f := struct {
		Remediation Targets `yaml:"remediation"`
	}{Remediation: DefaultTargets()}
	if err := goyaml.Unmarshal(raw, &f); err != nil {
		return Targets{}, fmt.Errorf("parse remediation targets: %w", err)
	}
	return f.Remediation, nil
}

func (t Targets) scale(deployment string, replicas int) string {
	return fmt.Sprintf("kubectl scale deployment %s --replicas=%d", deployment, replicas)
}

func (t Targets) undo(deployment string) string {
	return "kubectl rollout undo deployment " + deployment
}
