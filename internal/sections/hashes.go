package sections

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PromptHashes returns a sha256 per prompt file under root, keyed
// "agent:<file stem>" for agents/*.md and "skill:<dir>" for
// skills/<dir>/SKILL.md. Comparing two snapshots detects prompt changes.
func PromptHashes(root string) (map[string]string, error) {
	hashes := map[string]string{}

	agentsDir := filepath.Join(root, "agents")
	names, err := sortedEntries(agentsDir)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		path := filepath.Join(agentsDir, name)
		if !strings.HasSuffix(name, agentExt) || !isFile(path) {
			continue
		}
		sum, err := fileDigest(path)
		if err != nil {
			return nil, err
		}
		hashes["agent:"+strings.TrimSuffix(name, agentExt)] = sum
	}

	skillsDir := filepath.Join(root, "skills")
	names, err = sortedEntries(skillsDir)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		path := filepath.Join(skillsDir, name, skillFileName)
		if !isFile(path) {
			continue
		}
		sum, err := fileDigest(path)
		if err != nil {
			return nil, err
		}
		hashes["skill:"+name] = sum
	}
	return hashes, nil
}

func fileDigest(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
