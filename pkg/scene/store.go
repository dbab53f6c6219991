package scene

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/df07/go-sphere-tracer/pkg/core"
	"github.com/df07/go-sphere-tracer/pkg/geometry"
)

// HitEpsilon is the minimum hit distance; closer roots are treated as self-intersections
const HitEpsilon = 1e-4

// Store is the per-frame snapshot of the scene: the valid spheres, in the
// order they were supplied, plus the environment. It is rebuilt in full
// before any ray of a frame is traced and is read-only while tracing.
type Store struct {
	spheres     []geometry.Sphere
	environment Environment
	excluded    []error
	fingerprint uint64
	cache       *core.BufferCache[geometry.Sphere]
}

// NewStore creates an empty store whose sphere buffer allocations are approved by check
func NewStore(check core.AllocCheck) *Store {
	return &Store{
		environment: DefaultEnvironment(),
		cache:       core.NewBufferCache[geometry.Sphere](check),
	}
}

// Snapshot builds a one-off store from spheres
func Snapshot(spheres []geometry.Sphere, env Environment) *Store {
	s := NewStore(nil)
	// Without an allocation check the rebuild only fails if the runtime cannot allocate
	if err := s.Rebuild(spheres, env); err != nil {
		panic(err)
	}
	return s
}

// Rebuild replaces the snapshot contents. Invalid spheres are left out and
// reported through Excluded; materials are sanitized. The sphere buffer is
// reused when the number of valid spheres is unchanged.
func (s *Store) Rebuild(spheres []geometry.Sphere, env Environment) error {
	var excluded []error
	valid := 0
	for i := range spheres {
		if err := spheres[i].Validate(); err != nil {
			excluded = append(excluded, fmt.Errorf("sphere %d: %w", i, err))
			continue
		}
		valid++
	}

	buf, err := s.cache.Acquire(valid)
	if err != nil {
		return err
	}

	n := 0
	for i := range spheres {
		if spheres[i].Validate() != nil {
			continue
		}
		buf[n] = spheres[i]
		buf[n].Material = spheres[i].Material.Sanitize()
		n++
	}

	if env == nil {
		env = DefaultEnvironment()
	}

	s.spheres = buf
	s.environment = env
	s.excluded = excluded
	s.fingerprint = fingerprint(buf, env)
	return nil
}

// Intersect returns the nearest hit farther than HitEpsilon. Spheres are
// scanned in store order and only a strictly smaller distance replaces the
// current best, so ties go to the earliest sphere.
func (s *Store) Intersect(ray core.Ray) geometry.HitInfo {
	closest := geometry.HitInfo{}
	closestSoFar := math.Inf(1)

	for i := range s.spheres {
		if hit, isHit := s.spheres[i].Hit(ray, HitEpsilon, closestSoFar); isHit {
			closestSoFar = hit.Distance
			closest = hit
		}
	}

	return closest
}

// Environment returns the radiance source for escaped rays
func (s *Store) Environment() Environment {
	return s.environment
}

// Spheres returns the valid spheres. The slice must not be modified.
func (s *Store) Spheres() []geometry.Sphere {
	return s.spheres
}

// Len returns the number of spheres in the snapshot
func (s *Store) Len() int {
	return len(s.spheres)
}

// Excluded returns one error per sphere that was left out of the last rebuild
func (s *Store) Excluded() []error {
	return s.excluded
}

// Fingerprint identifies the snapshot contents; it changes whenever a sphere,
// a material or the environment changes.
func (s *Store) Fingerprint() uint64 {
	return s.fingerprint
}

func fingerprint(spheres []geometry.Sphere, env Environment) uint64 {
	h := fnv.New64a()
	var word [8]byte
	put := func(values ...float64) {
		for _, v := range values {
			binary.LittleEndian.PutUint64(word[:], math.Float64bits(v))
			h.Write(word[:])
		}
	}

	put(float64(len(spheres)))
	for i := range spheres {
		sp := &spheres[i]
		m := &sp.Material
		put(sp.Center.X, sp.Center.Y, sp.Center.Z, sp.Radius,
			m.Albedo.X, m.Albedo.Y, m.Albedo.Z,
			m.EmissionColor.X, m.EmissionColor.Y, m.EmissionColor.Z, m.EmissionStrength,
			m.Roughness, m.SpecularProbability)
	}
	fmt.Fprintf(h, "%T%+v", env, env)
	return h.Sum64()
}
