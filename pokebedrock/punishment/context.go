package punishment

import (
	"crypto/md5"

	"github.com/google/uuid"
)

// Source is the origin of a moderation action.
type Source string

const (
	SourceCommand Source = "COMMAND"
	SourceConsole Source = "CONSOLE"
	SourceWeb     Source = "WEB"
)

// ConsoleUUID is the identity used for actions issued by the server itself. It is the name based (version 3)
// UUID of the bytes "CONSOLE", hashed without a namespace so that it stays stable across processes.
var ConsoleUUID = nameUUID("CONSOLE")

// ExecutionContext describes who issued a moderation action and from where. It is threaded through every
// moderation call so that notifications and audit records attribute the right actor.
type ExecutionContext struct {
	Issuer     uuid.UUID
	IssuerName string
	Source     Source
}

// Console returns the execution context of the server console.
func Console() ExecutionContext {
	return ExecutionContext{Issuer: ConsoleUUID, IssuerName: "Console", Source: SourceConsole}
}

// Command returns the execution context of a player running a command.
func Command(issuer uuid.UUID, name string) ExecutionContext {
	return ExecutionContext{Issuer: issuer, IssuerName: name, Source: SourceCommand}
}

// Web returns the execution context of an action received from the web panel. Missing issuer details fall
// back to the console identity and the "WebPanel" name.
func Web(issuer uuid.UUID, name string) ExecutionContext {
	if issuer == uuid.Nil {
		issuer = ConsoleUUID
	}
	if name == "" {
		name = "WebPanel"
	}
	return ExecutionContext{Issuer: issuer, IssuerName: name, Source: SourceWeb}
}

// nameUUID ...
func nameUUID(name string) uuid.UUID {
	sum := md5.Sum([]byte(name))
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80
	return uuid.UUID(sum)
}
