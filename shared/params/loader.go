package params

import (
	"io/ioutil"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"
)

// LoadChainConfigFile loads the given yaml file and makes it the current
// tower chain config. Fields absent from the file keep their mainnet
// defaults.
func LoadChainConfigFile(chainConfigFileName string) error {
	yamlFile, err := ioutil.ReadFile(chainConfigFileName) // #nosec G304
	if err != nil {
		return errors.Wrap(err, "could not read chain config file")
	}
	decoded := *MainnetConfig()
	if err := yaml.Unmarshal(yamlFile, &decoded); err != nil {
		return errors.Wrap(err, "could not unmarshal chain config file")
	}
	OverrideTowerConfig(&decoded)
	return nil
}
