package il2cppcore

// Artifacts is Dump's result: a filename to byte-content map covering
// dump.cs, il2cpp.h, stringliteral.json, and, when Config.GenerateScript
// is set, script.json.
type Artifacts map[string][]byte
