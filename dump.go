package il2cppcore

import (
	"github.com/il2cppcore/il2cppcore/internal/ilog"
	"github.com/il2cppcore/il2cppcore/metadata"
	"github.com/il2cppcore/il2cppcore/output"
	"github.com/il2cppcore/il2cppcore/registration"
	"github.com/il2cppcore/il2cppcore/resolver"
)

// Dump is the library's sole entry point: a pure function of
// (binaryBytes, metadataBytes, cfg), returning either a complete set of
// artifacts or an error. It never panics and never terminates the
// process; every failure path returns an *ilerr.Error, and no state
// survives past one call. cfg.Logger is built into one Helper here and
// threaded through by hand rather than held as package-level state.
func Dump(binaryBytes, metadataBytes []byte, cfg Config) (Artifacts, error) {
	log := ilog.NewHelper(cfg.Logger)

	log.Infof("decoding global-metadata.dat (%d bytes)", len(metadataBytes))
	meta, err := metadata.Decode(metadataBytes, cfg.ForceVersion)
	if err != nil {
		log.Errorf("decoding metadata: %v", err)
		return nil, err
	}
	log.Infof("decoded metadata version %v: %d images, %d type defs, %d methods", meta.Version, len(meta.Images), len(meta.TypeDefs), len(meta.Methods))

	log.Infof("loading binary image (%d bytes)", len(binaryBytes))
	img, err := loadImage(binaryBytes)
	if err != nil {
		log.Errorf("loading image: %v", err)
		return nil, err
	}

	registrationVersion := meta.Version
	if cfg.ForceIl2CppVersion != nil {
		registrationVersion = *cfg.ForceIl2CppVersion
	}

	// The locator's seed is the number of methods that actually have a
	// code body (method_index >= 0); abstract/interface/extern methods
	// have no entry in any method pointer table.
	var methodsCount uint64
	for i := range meta.Methods {
		if meta.Methods[i].MethodIndex >= 0 {
			methodsCount++
		}
	}

	log.Infof("locating CodeRegistration/MetadataRegistration for il2cpp version %v", registrationVersion)
	reg, err := registration.Locate(
		img,
		registrationVersion,
		methodsCount,
		uint64(len(meta.TypeDefs)),
		registration.DefaultOptions(),
	)
	if err != nil {
		log.Errorf("locating registration: %v", err)
		return nil, err
	}

	log.Infof("building resolver")
	res, err := resolver.New(img, meta, reg)
	if err != nil {
		log.Errorf("building resolver: %v", err)
		return nil, err
	}

	outOpts := output.Options{
		DumpMethod:       cfg.DumpMethod,
		DumpField:        cfg.DumpField,
		DumpProperty:     cfg.DumpProperty,
		DumpAttribute:    cfg.DumpAttribute,
		DumpFieldOffset:  cfg.DumpFieldOffset,
		DumpMethodOffset: cfg.DumpMethodOffset,
		DumpTypeDefIndex: cfg.DumpTypeDefIndex,
		GenerateScript:   cfg.GenerateScript,
	}

	log.Infof("assembling type model")
	model, err := output.Assemble(meta, res, outOpts)
	if err != nil {
		log.Errorf("assembling type model: %v", err)
		return nil, err
	}
	log.Infof("assembled %d types", len(model.Types))

	stringLiterals, err := output.StringLiterals(meta)
	if err != nil {
		log.Errorf("rendering string literals: %v", err)
		return nil, err
	}

	artifacts := Artifacts{
		"dump.cs":            output.DumpCS(model, outOpts),
		"il2cpp.h":           output.Header(model, outOpts),
		"stringliteral.json": stringLiterals,
	}

	if cfg.GenerateScript {
		addrs := make(map[int]uint64, len(meta.StringLiterals))
		vals := make(map[int]string, len(meta.StringLiterals))
		for i, lit := range meta.StringLiterals {
			raw, err := meta.StringLiteralBytes(i)
			if err != nil {
				continue
			}
			addrs[i] = uint64(lit.DataIndex)
			vals[i] = string(raw)
		}
		script, err := output.Script(model, addrs, vals)
		if err != nil {
			log.Errorf("rendering script.json: %v", err)
			return nil, err
		}
		artifacts["script.json"] = script
	}

	log.Infof("dump complete: %d artifacts", len(artifacts))
	return artifacts, nil
}
