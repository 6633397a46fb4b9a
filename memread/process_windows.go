//go:build windows

package memread

import (
	"encoding/binary"
	"log/slog"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Process reads named pointer chains from one running process, found by
// executable name. The process handle and module bases are cached and
// re-resolved after any failure, so a restarted game is picked up on a
// later tick. Targets are assumed to be 64-bit (8-byte pointers).
type Process struct {
	logger *slog.Logger
	name   string
	chains map[string]Chain

	handle  windows.Handle
	pid     uint32
	modules map[string]uint64
}

func NewProcess(logger *slog.Logger, processName string, chains map[string]Chain) *Process {
	if logger == nil {
		logger = slog.Default()
	}
	return &Process{logger: logger, name: processName, chains: chains}
}

// ReadFloat resolves one named chain. ok is false when the chain is
// unknown, the process is gone or any dereference fails.
func (p *Process) ReadFloat(pointer string) (float64, bool) {
	chain, ok := p.chains[pointer]
	if !ok {
		p.logger.Warn("unknown pointer", "name", pointer)
		return 0, false
	}
	if !p.attach() {
		return 0, false
	}

	base, ok := p.moduleBase(chain.Module)
	if !ok {
		return 0, false
	}
	addr := base + chain.Base
	for _, off := range chain.Offsets {
		var buf [8]byte
		if !p.read(addr, buf[:]) {
			p.detach()
			return 0, false
		}
		addr = binary.LittleEndian.Uint64(buf[:]) + off
	}

	buf := make([]byte, chain.valueSize())
	if !p.read(addr, buf) {
		p.detach()
		return 0, false
	}
	return chain.decodeValue(buf)
}

// Close releases the process handle.
func (p *Process) Close() {
	p.detach()
}

func (p *Process) read(addr uint64, buf []byte) bool {
	var n uintptr
	err := windows.ReadProcessMemory(p.handle, uintptr(addr), &buf[0], uintptr(len(buf)), &n)
	return err == nil && n == uintptr(len(buf))
}

func (p *Process) attach() bool {
	if p.handle != 0 {
		return true
	}
	pid, ok := findProcess(p.name)
	if !ok {
		return false
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_VM_READ, false, pid)
	if err != nil {
		p.logger.Warn("open process failed", "pid", pid, "error", err)
		return false
	}
	p.handle = h
	p.pid = pid
	p.modules = nil
	p.logger.Info("attached to process", "name", p.name, "pid", pid)
	return true
}

func (p *Process) detach() {
	if p.handle != 0 {
		windows.CloseHandle(p.handle)
		p.handle = 0
		p.modules = nil
	}
}

func (p *Process) moduleBase(module string) (uint64, bool) {
	if p.modules == nil {
		p.modules = listModules(p.pid)
	}
	base, ok := p.modules[strings.ToLower(module)]
	if !ok {
		p.logger.Warn("module not found in process", "module", module)
	}
	return base, ok
}

func findProcess(name string) (uint32, bool) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return 0, false
	}
	defer windows.CloseHandle(snap)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	for err = windows.Process32First(snap, &entry); err == nil; err = windows.Process32Next(snap, &entry) {
		if strings.EqualFold(windows.UTF16ToString(entry.ExeFile[:]), name) {
			return entry.ProcessID, true
		}
	}
	return 0, false
}

func listModules(pid uint32) map[string]uint64 {
	modules := map[string]uint64{}
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, pid)
	if err != nil {
		return modules
	}
	defer windows.CloseHandle(snap)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	for err = windows.Module32First(snap, &entry); err == nil; err = windows.Module32Next(snap, &entry) {
		name := strings.ToLower(windows.UTF16ToString(entry.Module[:]))
		modules[name] = uint64(entry.ModBaseAddr)
	}
	return modules
}
