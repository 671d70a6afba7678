// Package config loads and validates Khanda Hub configuration.
//
// Configuration is read from a YAML file, merged over built-in defaults,
// and finally overridden by KHANDA_* environment variables. The defaults
// encode the wire-level constants the slave device firmware expects
// (multicast group 224.1.1.1, port 5007, 512-byte frames).
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Hub.MulticastGroup)
//
// Secrets (MQTT password, InfluxDB token) should be supplied via the
// environment rather than committed to the config file.
package config
