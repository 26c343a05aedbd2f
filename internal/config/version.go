package config

// Version is reported by the API root and the CLI.
const Version = "0.1.0"
