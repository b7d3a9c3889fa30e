package config

// ToolName is the compiler's name, recorded in envelope metadata as part
// of the generator stamp.
const ToolName = "weftc"

// Version is the compiler version, recorded next to ToolName and
// reported by the version command.
const Version = "0.1.0"

// EnvExperimental force-enables experimental features regardless of
// configuration when set to anything but "0" or "false".
const EnvExperimental = "WEFT_EXPERIMENTAL_FEATURES"
