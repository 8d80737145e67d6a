package capability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daniel-p-green/skillvault/pkg/capability"
	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/hashing"
)

func TestInfer_NoMatches(t *testing.T) {
	files := []hashing.RawFile{
		{Path: "SKILL.md", Bytes: []byte("# a harmless skill\n")},
	}
	assert.Empty(t, capability.Infer(files))
}

func TestInfer_NetworkByPath(t *testing.T) {
	files := []hashing.RawFile{
		{Path: "scripts/curl-weather.sh", Bytes: []byte("#!/bin/sh\n")},
	}
	caps := capability.Infer(files)
	assert.Contains(t, caps, contracts.CapabilityNetwork)
}

func TestInfer_NetworkByContent(t *testing.T) {
	files := []hashing.RawFile{
		{Path: "tool.js", Bytes: []byte("await fetch('https://api.example.com')")},
	}
	caps := capability.Infer(files)
	assert.Contains(t, caps, contracts.CapabilityNetwork)
}

func TestInfer_ExecByExtension(t *testing.T) {
	files := []hashing.RawFile{
		{Path: "install.sh", Bytes: []byte("echo hi")},
	}
	caps := capability.Infer(files)
	assert.Contains(t, caps, contracts.CapabilityExec)
}

func TestInfer_SecretsByContent(t *testing.T) {
	files := []hashing.RawFile{
		{Path: "config.json", Bytes: []byte(`{"api_key": "sk-123"}`)},
	}
	caps := capability.Infer(files)
	assert.Contains(t, caps, contracts.CapabilitySecrets)
}

func TestInfer_DynamicCodeByContent(t *testing.T) {
	files := []hashing.RawFile{
		{Path: "run.js", Bytes: []byte("eval(userInput)")},
	}
	caps := capability.Infer(files)
	assert.Contains(t, caps, contracts.CapabilityDynamicCode)
}

func TestInfer_DeduplicatesAndSorts(t *testing.T) {
	files := []hashing.RawFile{
		{Path: "b.sh", Bytes: []byte("os.system('ls')")},
		{Path: "a.sh", Bytes: []byte("os.system('ls')")},
	}
	caps := capability.Infer(files)
	assert.Len(t, caps, 1)
	assert.Equal(t, contracts.CapabilityExec, caps[0])
}

func TestInfer_MultipleCapabilitiesSortedOutput(t *testing.T) {
	files := []hashing.RawFile{
		{Path: "tool.py", Bytes: []byte("requests.get('https://x'); os.system('rm -rf tmp')")},
	}
	caps := capability.Infer(files)
	assert.Len(t, caps, 3)
	for i := 1; i < len(caps); i++ {
		assert.True(t, caps[i-1] < caps[i], "capabilities must be sorted ascending")
	}
}
