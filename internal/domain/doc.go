// Package domain contains the core task entities, value objects, and
// lifecycle rules of the engine. It represents the heart of the system,
// independent of any specific infrastructure or delivery mechanism.
package domain
