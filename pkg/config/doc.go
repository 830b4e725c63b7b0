// # Loading
//
// Configuration files are YAML. ${VAR_NAME} references are replaced with the
// value of the environment variable before parsing, and keys absent from the
// file keep the values from Default:
//
//	name: nightly-bench
//	engine:
//	  codec: zstd
//	  level: ${CARRAY_LEVEL}
//	  chunk_capacity: 65536
//	  workers: 8
//	logging:
//	  level: debug
//
//	cfg, err := config.LoadFile("carray.yaml")
//
// # Engine settings
//
// Engine is passed by value to array and table constructors. The worker count
// lives here rather than in package state so that independent engines in one
// process never observe each other's settings.
package config
