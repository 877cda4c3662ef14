package astparse

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/weftcode/astindex/internal/astschema"
)

// NodeID computes the stable content hash spec'd for ASTNode.ID: a
// node keeps the same ID across edits elsewhere in the file as long
// as its own position, type, name, and text don't change.
func NodeID(filePath string, nodeType astschema.NodeType, start, end astschema.Position, name, normalizedSourceText string) string {
	key := fmt.Sprintf("%s|%s|%d:%d|%d:%d|%s|%s",
		filePath, nodeType, start.Line, start.Column, end.Line, end.Column, name, normalizedSourceText)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// NormalizeSourceText collapses whitespace runs so that formatting-only
// edits (re-indentation, trailing-space changes) don't perturb a node's
// ID.
func NormalizeSourceText(text string) string {
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}

// ContentSHA256 hashes a file's raw bytes, used to detect unchanged
// files before re-parsing.
func ContentSHA256(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
