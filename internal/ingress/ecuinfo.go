package ingress

import (
	"os"

	"sigs.k8s.io/yaml"
)

// Secondary is one secondary ECU entry in the ECU info document.
type Secondary struct {
	ECUID string `json:"ecu_id"`
	IP    string `json:"ip_addr"`
	Port  int    `json:"port"`
}

// ECUInfo is the optional startup document naming the main ECU and its
// secondaries; AllowedECUs is derived from it.
type ECUInfo struct {
	ECUID       string      `json:"ecu_id"`
	Secondaries []Secondary `json:"secondaries"`
}

// AllowedECUs returns {ecu_id} union {secondaries.ecu_id}.
func (e ECUInfo) AllowedECUs() []string {
	ids := make([]string, 0, len(e.Secondaries)+1)
	ids = append(ids, e.ECUID)
	for _, s := range e.Secondaries {
		ids = append(ids, s.ECUID)
	}
	return ids
}

// LoadECUInfo reads the optional ECU info YAML at path. A missing path is
// not an error: it means filtering is disabled.
func LoadECUInfo(path string) (*ECUInfo, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var info ECUInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
