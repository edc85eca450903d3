package db

import (
	"fmt"
	"log/slog"
)

// DBConfigFromYamlObj builds the connection config from the YAML block of a service config.
func DBConfigFromYamlObj(yamlObj DBConfigYaml) DBConfig {
	if yamlObj.ConnectionStr == "" || yamlObj.Username == "" || yamlObj.Password == "" {
		slog.Error("couldn't read DB credentials", slog.String("dbNamePrefix", yamlObj.DBNamePrefix))
		panic("couldn't read DB credentials")
	}
	URI := fmt.Sprintf(`mongodb%s://%s:%s@%s`, yamlObj.ConnectionPrefix, yamlObj.Username, yamlObj.Password, yamlObj.ConnectionStr)

	return DBConfig{
		URI:              URI,
		Timeout:          yamlObj.Timeout,
		IdleConnTimeout:  yamlObj.IdleConnTimeout,
		MaxPoolSize:      uint64(yamlObj.MaxPoolSize),
		NoCursorTimeout:  yamlObj.UseNoCursorTimeout,
		DBNamePrefix:     yamlObj.DBNamePrefix,
		RunIndexCreation: yamlObj.RunIndexCreation,
	}
}
