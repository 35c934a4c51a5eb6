// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package config reads machine descriptions written in Starlark.
//
// A configuration script assigns globals; anything it does not assign
// keeps its default:
//
//	features = ["cf_isa_a", "cf_isa_b", "bral", "usp", "cf_emac"]
//	ram = (0x0, 0x400000)
//	rom = (0xfff00000, 0x80000)
//	uart = 0xfffff000
//	images = {0xfff00000: "boot.bin"}
//	depot = "segments"
//	breakpoints = [0x400]
//	watchpoints = [(0x2000, 4)]
//	max_insns = 64
//
// The register layout of the devices and the exception numbers of the
// core are predeclared, so scripts may write UART_BASE + UART_STATUS or
// EXCP_TRAP0.
package config

import (
	"fmt"
	"iter"
	"maps"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/emulator"
	"github.com/ezrec/cf68k/internal"
	"github.com/ezrec/cf68k/io"
	"github.com/ezrec/cf68k/m68k"
)

const (
	DEFAULT_RAM_BASE  = 0x00000000
	DEFAULT_RAM_SIZE  = 0x00400000
	DEFAULT_UART_BASE = 0xfffff000
)

var _config_defines = map[string]string{
	"DEFAULT_RAM_BASE":  fmt.Sprintf("0x%x", DEFAULT_RAM_BASE),
	"DEFAULT_RAM_SIZE":  fmt.Sprintf("0x%x", DEFAULT_RAM_SIZE),
	"DEFAULT_UART_BASE": fmt.Sprintf("0x%x", DEFAULT_UART_BASE),
}

// DefaultFeatures is a ColdFire V4e without the MMU.
var DefaultFeatures = cpu.NewFeatures(
	cpu.FEATURE_CF_ISA_A,
	cpu.FEATURE_CF_ISA_B,
	cpu.FEATURE_BRAL,
	cpu.FEATURE_CF_FPU,
	cpu.FEATURE_CF_EMAC,
	cpu.FEATURE_USP,
	cpu.FEATURE_BKPT,
)

// Region is an address range.
type Region struct {
	Base uint32
	Size uint32
}

// Config describes a machine.
type Config struct {
	Features    cpu.Features
	Ram         Region
	Rom         Region // Zero size for no ROM.
	Uart        uint32
	NoUart      bool              // Set by uart = None.
	Images      map[uint32]string // Files loaded at guest addresses.
	Depot       string            // Directory of depot segments, or empty.
	Options     m68k.Options
	Watchpoints []Region
	VBR         uint32
	Verbose     bool

	// Dir resolves relative image and depot paths.
	Dir string
}

// Default returns the configuration used when no script is given.
func Default() *Config {
	return &Config{
		Features: DefaultFeatures,
		Ram:      Region{Base: DEFAULT_RAM_BASE, Size: DEFAULT_RAM_SIZE},
		Uart:     DEFAULT_UART_BASE,
		Images:   map[uint32]string{},
	}
}

// Defines returns the names predeclared in configuration scripts.
func Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_config_defines),
		cpu.NewCpu(DefaultFeatures).Defines(),
		(&io.Uart{}).Defines(),
	)
}

func predeclared() (pred starlark.StringDict) {
	pred = starlark.StringDict{}
	for key, str := range Defines() {
		value, err := strconv.ParseUint(str, 0, 64)
		if err != nil {
			// Only integer defines are useful to scripts.
			continue
		}
		pred[key] = starlark.MakeUint64(value)
	}
	return
}

// Load runs the script in src (a string, []byte or nil to read filename)
// and returns the resulting configuration.
func Load(filename string, src any) (cfg *Config, err error) {
	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			logrus.WithField("config", filename).Info(msg)
		},
	}
	opts := syntax.FileOptions{}

	globals, err := starlark.ExecFileOptions(&opts, thread, filename, src, predeclared())
	if err != nil {
		return
	}

	cfg = Default()
	cfg.Dir = filepath.Dir(filename)

	err = cfg.apply(globals)
	if err != nil {
		cfg = nil
	}
	return
}

// LoadFile reads a configuration script from disk.
func LoadFile(filename string) (cfg *Config, err error) {
	return Load(filename, nil)
}

func (cfg *Config) apply(globals starlark.StringDict) (err error) {
	setters := []struct {
		name string
		set  func(v starlark.Value) error
	}{
		{"features", cfg.setFeatures},
		{"ram", func(v starlark.Value) (err error) { cfg.Ram, err = toRegion(v); return }},
		{"rom", func(v starlark.Value) (err error) { cfg.Rom, err = toRegion(v); return }},
		{"uart", cfg.setUart},
		{"images", cfg.setImages},
		{"depot", func(v starlark.Value) (err error) { cfg.Depot, err = toString(v); return }},
		{"breakpoints", cfg.setBreakpoints},
		{"watchpoints", cfg.setWatchpoints},
		{"max_insns", func(v starlark.Value) (err error) { cfg.Options.MaxInsns, err = toInt(v); return }},
		{"page_size", cfg.setPageSize},
		{"page_margin", func(v starlark.Value) (err error) { cfg.Options.PageMargin, err = toUint32(v); return }},
		{"singlestep", func(v starlark.Value) (err error) { cfg.Options.SingleStep, err = toBool(v); return }},
		{"vbr", func(v starlark.Value) (err error) { cfg.VBR, err = toUint32(v); return }},
		{"verbose", func(v starlark.Value) (err error) { cfg.Verbose, err = toBool(v); return }},
	}

	for _, setter := range setters {
		v, ok := globals[setter.name]
		if !ok {
			continue
		}
		err = setter.set(v)
		if err != nil {
			err = &ErrSetting{Name: setter.name, Err: err}
			return
		}
	}

	cfg.Options.Verbose = cfg.Verbose
	return
}

func (cfg *Config) setFeatures(v starlark.Value) (err error) {
	list, ok := v.(starlark.Indexable)
	if !ok {
		return ErrType
	}
	features := cpu.NewFeatures()
	for n := range list.Len() {
		var name string
		name, err = toString(list.Index(n))
		if err != nil {
			return
		}
		var ft cpu.Feature
		ft, err = cpu.ParseFeature(name)
		if err != nil {
			return
		}
		features = features.With(ft)
	}
	cfg.Features = features
	return
}

func (cfg *Config) setUart(v starlark.Value) (err error) {
	if v == starlark.None {
		cfg.NoUart = true
		return
	}
	cfg.Uart, err = toUint32(v)
	return
}

func (cfg *Config) setImages(v starlark.Value) (err error) {
	dict, ok := v.(*starlark.Dict)
	if !ok {
		return ErrType
	}
	images := map[uint32]string{}
	for _, item := range dict.Items() {
		var addr uint32
		addr, err = toUint32(item[0])
		if err != nil {
			return
		}
		var path string
		path, err = toString(item[1])
		if err != nil {
			return
		}
		images[addr] = path
	}
	cfg.Images = images
	return
}

func (cfg *Config) setBreakpoints(v starlark.Value) (err error) {
	list, ok := v.(starlark.Indexable)
	if !ok {
		return ErrType
	}
	var bps []uint32
	for n := range list.Len() {
		var addr uint32
		addr, err = toUint32(list.Index(n))
		if err != nil {
			return
		}
		bps = append(bps, addr)
	}
	cfg.Options.Breakpoints = bps
	return
}

func (cfg *Config) setWatchpoints(v starlark.Value) (err error) {
	list, ok := v.(starlark.Indexable)
	if !ok {
		return ErrType
	}
	var wps []Region
	for n := range list.Len() {
		var r Region
		r, err = toRegion(list.Index(n))
		if err != nil {
			return
		}
		wps = append(wps, r)
	}
	cfg.Watchpoints = wps
	return
}

func (cfg *Config) setPageSize(v starlark.Value) (err error) {
	size, err := toUint32(v)
	if err != nil {
		return
	}
	if size == 0 || size&(size-1) != 0 {
		return ErrRange
	}
	cfg.Options.PageSize = size
	return
}

func (cfg *Config) path(name string) string {
	if filepath.IsAbs(name) || cfg.Dir == "" {
		return name
	}
	return filepath.Join(cfg.Dir, name)
}

// Build creates the bus and emulator described by the configuration and
// resets the core. The UART, when present, talks to uart.
func (cfg *Config) Build(uart *io.Uart) (emu *emulator.Emulator, depot *io.Depot, err error) {
	bus := &io.Bus{Verbose: cfg.Verbose}

	err = bus.Map("ram", cfg.Ram.Base, cfg.Ram.Size, io.NewRam(cfg.Ram.Size))
	if err != nil {
		return
	}
	if cfg.Rom.Size != 0 {
		err = bus.Map("rom", cfg.Rom.Base, cfg.Rom.Size, io.NewRom(cfg.Rom.Size))
		if err != nil {
			return
		}
	}
	if !cfg.NoUart {
		if uart == nil {
			uart = &io.Uart{}
		}
		err = bus.Map("uart", cfg.Uart, io.UART_SIZE, uart)
		if err != nil {
			return
		}
	}

	for addr, name := range cfg.Images {
		var data []byte
		data, err = os.ReadFile(cfg.path(name))
		if err != nil {
			return
		}
		err = bus.LoadImage(addr, data)
		if err != nil {
			err = &io.ErrSegment{Name: name, Err: err}
			return
		}
	}

	depot = &io.Depot{}
	if cfg.Depot != "" {
		err = depot.Unmarshal(os.DirFS(cfg.path(cfg.Depot)))
		if err != nil {
			return
		}
		err = depot.Load(bus)
		if err != nil {
			return
		}
	}

	emu = emulator.NewEmulator(cfg.Features, bus, cfg.Options)
	emu.Verbose = cfg.Verbose
	emu.Cpu.VBR = cfg.VBR
	for _, w := range cfg.Watchpoints {
		emu.Watch(w.Base, w.Size, false)
	}

	err = emu.Reset()
	return
}

// SaveDepot writes the depot segments back to the configured directory.
func (cfg *Config) SaveDepot(depot *io.Depot, bus *io.Bus) (err error) {
	if cfg.Depot == "" {
		return
	}
	err = depot.Save(bus)
	if err != nil {
		return
	}
	return depot.Marshal(io.DirFS(cfg.path(cfg.Depot)))
}

func toInt(v starlark.Value) (value int, err error) {
	err = starlark.AsInt(v, &value)
	if err != nil {
		err = ErrType
	}
	return
}

func toUint32(v starlark.Value) (value uint32, err error) {
	i, ok := v.(starlark.Int)
	if !ok {
		err = ErrType
		return
	}
	u, ok := i.Uint64()
	if !ok || u > 0xffffffff {
		err = ErrRange
		return
	}
	value = uint32(u)
	return
}

func toBool(v starlark.Value) (value bool, err error) {
	b, ok := v.(starlark.Bool)
	if !ok {
		err = ErrType
		return
	}
	value = bool(b)
	return
}

func toString(v starlark.Value) (value string, err error) {
	value, ok := starlark.AsString(v)
	if !ok {
		err = ErrType
	}
	return
}

// toRegion accepts a (base, size) pair.
func toRegion(v starlark.Value) (r Region, err error) {
	tuple, ok := v.(starlark.Indexable)
	if !ok || tuple.Len() != 2 {
		err = ErrType
		return
	}
	r.Base, err = toUint32(tuple.Index(0))
	if err != nil {
		return
	}
	r.Size, err = toUint32(tuple.Index(1))
	if err != nil {
		return
	}
	if uint64(r.Base)+uint64(r.Size) > 1<<32 {
		err = ErrRange
	}
	return
}
