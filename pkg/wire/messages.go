package wire

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/skylane-game/skylane/pkg/command"
	"github.com/skylane-game/skylane/pkg/game/types"
	"github.com/skylane-game/skylane/pkg/projectiles"
	"github.com/skylane-game/skylane/pkg/statesync"
)

// WriteShipUpdate appends a ship update record:
// uuid(16), tick(u64), scope(u8), position, velocity, facing, then the
// vitals for FULL/VITAL scope and the status word for FULL scope.
func WriteShipUpdate(w *Writer, u statesync.ShipUpdate) {
	w.WriteUUID(u.Ship)
	w.WriteUint64(u.Tick)
	w.WriteUint8(uint8(u.Scope))
	w.WritePoint(u.Position)
	w.WritePoint(u.Velocity)
	w.WriteAngle(u.Facing)

	if u.Scope.HasVitals() {
		w.WriteFloat32(u.Shields)
		w.WriteFloat32(u.Hull)
		w.WriteFloat32(u.Energy)
		w.WriteFloat32(u.Fuel)
	}
	if u.Scope.HasFlags() {
		w.WriteUint16(u.Flags)
	}
}

// ReadShipUpdate parses one ship update record.
func ReadShipUpdate(r *Reader) statesync.ShipUpdate {
	u := statesync.ShipUpdate{
		Ship:     r.ReadUUID(),
		Tick:     r.ReadUint64(),
		Scope:    statesync.Scope(r.ReadUint8()),
		Position: r.ReadPoint(),
		Velocity: r.ReadPoint(),
		Facing:   r.ReadAngle(),
	}
	if u.Scope.HasVitals() {
		u.Shields = r.ReadFloat32()
		u.Hull = r.ReadFloat32()
		u.Energy = r.ReadFloat32()
		u.Fuel = r.ReadFloat32()
	}
	if u.Scope.HasFlags() {
		u.Flags = r.ReadUint16()
	}
	return u
}

// WriteSpawn appends a projectile spawn record.
func WriteSpawn(w *Writer, s projectiles.Spawn) {
	w.WriteUint32(s.ProjectileID)
	w.WriteString(s.Weapon)
	w.WriteUUID(s.FiringShip)
	w.WriteUUID(s.TargetShip)
	w.WritePoint(s.Position)
	w.WritePoint(s.Velocity)
	w.WriteAngle(s.Facing)
	w.WriteUint64(s.Tick)
}

// ReadSpawn parses one projectile spawn record.
func ReadSpawn(r *Reader) projectiles.Spawn {
	return projectiles.Spawn{
		ProjectileID: r.ReadUint32(),
		Weapon:       r.ReadString(),
		FiringShip:   r.ReadUUID(),
		TargetShip:   r.ReadUUID(),
		Position:     r.ReadPoint(),
		Velocity:     r.ReadPoint(),
		Facing:       r.ReadAngle(),
		Tick:         r.ReadUint64(),
	}
}

// WriteImpact appends a projectile impact record.
func WriteImpact(w *Writer, i projectiles.Impact) {
	w.WriteUint32(i.ProjectileID)
	w.WriteUUID(i.Target)
	w.WritePoint(i.Position)
	w.WriteFloat64(i.Intersection)
	w.WriteUint64(i.Tick)
}

// ReadImpact parses one projectile impact record.
func ReadImpact(r *Reader) projectiles.Impact {
	return projectiles.Impact{
		ProjectileID: r.ReadUint32(),
		Target:       r.ReadUUID(),
		Position:     r.ReadPoint(),
		Intersection: r.ReadFloat64(),
		Tick:         r.ReadUint64(),
	}
}

// WriteDeath appends a projectile death record.
func WriteDeath(w *Writer, d projectiles.Death) {
	w.WriteUint32(d.ProjectileID)
	w.WritePoint(d.Position)
	w.WriteUint64(d.Tick)
}

// ReadDeath parses one projectile death record.
func ReadDeath(r *Reader) projectiles.Death {
	return projectiles.Death{
		ProjectileID: r.ReadUint32(),
		Position:     r.ReadPoint(),
		Tick:         r.ReadUint64(),
	}
}

// WriteCommand appends an upstream player command:
// playerUUID(16), tick(u64), sequence(u32), controlWord(u32),
// hasTargetPoint(u8), targetPoint when present.
func WriteCommand(w *Writer, c command.PlayerCommand) {
	w.WriteUUID(c.Player)
	w.WriteUint64(c.Tick)
	w.WriteUint32(c.Sequence)
	w.WriteUint32(uint32(c.Controls))
	w.WriteBool(c.HasTargetPoint)
	if c.HasTargetPoint {
		w.WritePoint(c.TargetPoint)
	}
}

// ReadCommand parses one upstream player command.
func ReadCommand(r *Reader) command.PlayerCommand {
	c := command.PlayerCommand{
		Player:   r.ReadUUID(),
		Tick:     r.ReadUint64(),
		Sequence: r.ReadUint32(),
		Controls: command.Control(r.ReadUint32()),
	}
	c.HasTargetPoint = r.ReadBool()
	if c.HasTargetPoint {
		c.TargetPoint = r.ReadPoint()
	}
	return c
}

// StateUpdate is the periodic authoritative broadcast: the server tick plus
// the observer's ship updates and the tick's projectile events. Each
// broadcast is self-contained; a lost packet is superseded by the next.
type StateUpdate struct {
	Tick    uint64
	Ships   []statesync.ShipUpdate
	Spawns  []projectiles.Spawn
	Impacts []projectiles.Impact
	Deaths  []projectiles.Death
}

// EncodeStateUpdate serializes a state update payload.
func EncodeStateUpdate(u StateUpdate) []byte {
	w := NewWriter()
	w.WriteUint64(u.Tick)

	w.WriteUint16(uint16(len(u.Ships)))
	for _, s := range u.Ships {
		WriteShipUpdate(w, s)
	}
	w.WriteUint16(uint16(len(u.Spawns)))
	for _, s := range u.Spawns {
		WriteSpawn(w, s)
	}
	w.WriteUint16(uint16(len(u.Impacts)))
	for _, i := range u.Impacts {
		WriteImpact(w, i)
	}
	w.WriteUint16(uint16(len(u.Deaths)))
	for _, d := range u.Deaths {
		WriteDeath(w, d)
	}
	return w.Bytes()
}

// DecodeStateUpdate parses a state update payload.
func DecodeStateUpdate(payload []byte) (StateUpdate, error) {
	r := NewReader(payload)
	u := StateUpdate{Tick: r.ReadUint64()}

	for i, n := 0, int(r.ReadUint16()); i < n && r.Err() == nil; i++ {
		u.Ships = append(u.Ships, ReadShipUpdate(r))
	}
	for i, n := 0, int(r.ReadUint16()); i < n && r.Err() == nil; i++ {
		u.Spawns = append(u.Spawns, ReadSpawn(r))
	}
	for i, n := 0, int(r.ReadUint16()); i < n && r.Err() == nil; i++ {
		u.Impacts = append(u.Impacts, ReadImpact(r))
	}
	for i, n := 0, int(r.ReadUint16()); i < n && r.Err() == nil; i++ {
		u.Deaths = append(u.Deaths, ReadDeath(r))
	}

	if err := r.Err(); err != nil {
		return StateUpdate{}, fmt.Errorf("failed to decode state update: %w", err)
	}
	return u, nil
}

// WriteWorld appends a full world snapshot, used by the welcome packet.
func WriteWorld(w *Writer, world *types.World) {
	w.WriteString(world.Region)
	w.WriteUint64(world.Tick)

	w.WriteUint16(uint16(len(world.Ships)))
	for _, ship := range world.Ships {
		writeShip(w, ship)
	}

	w.WriteUint16(uint16(len(world.Projectiles)))
	for i := range world.Projectiles {
		writeProjectile(w, &world.Projectiles[i])
	}

	w.WriteUint16(uint16(len(world.Flotsam)))
	for _, f := range world.Flotsam {
		writeFlotsam(w, f)
	}

	w.WriteUint16(uint16(len(world.Visuals)))
	for i := range world.Visuals {
		writeVisual(w, &world.Visuals[i])
	}

	w.WriteBool(world.Asteroids != nil)
	if world.Asteroids != nil {
		w.WriteUint16(uint16(len(world.Asteroids.Asteroids)))
		for i := range world.Asteroids.Asteroids {
			writeAsteroid(w, &world.Asteroids.Asteroids[i])
		}
	}
}

// ReadWorld parses a full world snapshot.
func ReadWorld(r *Reader) *types.World {
	world := types.NewWorld(r.ReadString())
	world.Tick = r.ReadUint64()

	for i, n := 0, int(r.ReadUint16()); i < n && r.Err() == nil; i++ {
		world.Ships = append(world.Ships, readShip(r))
	}
	for i, n := 0, int(r.ReadUint16()); i < n && r.Err() == nil; i++ {
		world.Projectiles = append(world.Projectiles, readProjectile(r))
	}
	for i, n := 0, int(r.ReadUint16()); i < n && r.Err() == nil; i++ {
		world.Flotsam = append(world.Flotsam, readFlotsam(r))
	}
	for i, n := 0, int(r.ReadUint16()); i < n && r.Err() == nil; i++ {
		world.Visuals = append(world.Visuals, readVisual(r))
	}
	if r.ReadBool() {
		world.Asteroids = types.NewAsteroidField()
		for i, n := 0, int(r.ReadUint16()); i < n && r.Err() == nil; i++ {
			world.Asteroids.Asteroids = append(world.Asteroids.Asteroids, readAsteroid(r))
		}
	}

	return world
}

func writeShip(w *Writer, s *types.Ship) {
	w.WriteUUID(s.ID)
	w.WriteString(s.Name)
	w.WriteString(s.Government)
	w.WriteUUID(s.Owner)
	w.WritePoint(s.Position)
	w.WritePoint(s.Velocity)
	w.WriteAngle(s.Facing)
	w.WriteFloat32(float32(s.Shields))
	w.WriteFloat32(float32(s.Hull))
	w.WriteFloat32(float32(s.Energy))
	w.WriteFloat32(float32(s.Fuel))
	w.WriteFloat64(s.Radius)
	w.WriteUint16(s.Flags)
}

func readShip(r *Reader) *types.Ship {
	return &types.Ship{
		ID:         r.ReadUUID(),
		Name:       r.ReadString(),
		Government: r.ReadString(),
		Owner:      r.ReadUUID(),
		Position:   r.ReadPoint(),
		Velocity:   r.ReadPoint(),
		Facing:     r.ReadAngle(),
		Shields:    float64(r.ReadFloat32()),
		Hull:       float64(r.ReadFloat32()),
		Energy:     float64(r.ReadFloat32()),
		Fuel:       float64(r.ReadFloat32()),
		Radius:     r.ReadFloat64(),
		Flags:      r.ReadUint16(),
	}
}

func writeProjectile(w *Writer, p *types.Projectile) {
	w.WriteUUID(p.ID)
	w.WriteString(p.Weapon)
	w.WriteString(p.Government)
	w.WriteUUID(p.FiringShip)
	w.WriteUUID(p.TargetShip)
	w.WritePoint(p.Position)
	w.WritePoint(p.Velocity)
	w.WriteAngle(p.Facing)
	w.WriteFloat64(p.Radius)
	w.WriteUint32(uint32(p.Lifetime))
}

func readProjectile(r *Reader) types.Projectile {
	return types.Projectile{
		ID:         r.ReadUUID(),
		Weapon:     r.ReadString(),
		Government: r.ReadString(),
		FiringShip: r.ReadUUID(),
		TargetShip: r.ReadUUID(),
		Position:   r.ReadPoint(),
		Velocity:   r.ReadPoint(),
		Facing:     r.ReadAngle(),
		Radius:     r.ReadFloat64(),
		Lifetime:   int(r.ReadUint32()),
	}
}

func writeFlotsam(w *Writer, f *types.Flotsam) {
	w.WriteUUID(f.ID)
	w.WriteString(f.Commodity)
	w.WriteUint32(uint32(f.Count))
	w.WritePoint(f.Position)
	w.WritePoint(f.Velocity)
}

func readFlotsam(r *Reader) *types.Flotsam {
	return &types.Flotsam{
		ID:        r.ReadUUID(),
		Commodity: r.ReadString(),
		Count:     int(r.ReadUint32()),
		Position:  r.ReadPoint(),
		Velocity:  r.ReadPoint(),
	}
}

func writeVisual(w *Writer, v *types.Visual) {
	w.WriteString(v.Effect)
	w.WritePoint(v.Position)
	w.WritePoint(v.Velocity)
	w.WriteUint32(uint32(v.Lifetime))
}

func readVisual(r *Reader) types.Visual {
	return types.Visual{
		Effect:   r.ReadString(),
		Position: r.ReadPoint(),
		Velocity: r.ReadPoint(),
		Lifetime: int(r.ReadUint32()),
	}
}

func writeAsteroid(w *Writer, a *types.Asteroid) {
	w.WriteUUID(a.ID)
	w.WritePoint(a.Position)
	w.WritePoint(a.Velocity)
	w.WriteFloat64(a.Radius)
}

func readAsteroid(r *Reader) types.Asteroid {
	return types.Asteroid{
		ID:       r.ReadUUID(),
		Position: r.ReadPoint(),
		Velocity: r.ReadPoint(),
		Radius:   r.ReadFloat64(),
	}
}

// Welcome is the session init event: the assigned player id and the
// initial world state.
type Welcome struct {
	Player uuid.UUID
	World  *types.World
}

// EncodeWelcome serializes a welcome payload.
func EncodeWelcome(welcome Welcome) []byte {
	w := NewWriter()
	w.WriteUUID(welcome.Player)
	WriteWorld(w, welcome.World)
	return w.Bytes()
}

// DecodeWelcome parses a welcome payload.
func DecodeWelcome(payload []byte) (Welcome, error) {
	r := NewReader(payload)
	welcome := Welcome{
		Player: r.ReadUUID(),
		World:  ReadWorld(r),
	}
	if err := r.Err(); err != nil {
		return Welcome{}, fmt.Errorf("failed to decode welcome: %w", err)
	}
	return welcome, nil
}

// PlayerInfo is the roster record carried by PLAYER_JOINED.
type PlayerInfo struct {
	ID       uuid.UUID
	Name     string
	Flagship uuid.UUID
}

// EncodePlayerJoined serializes a roster-add payload.
func EncodePlayerJoined(info PlayerInfo) []byte {
	w := NewWriter()
	w.WriteUUID(info.ID)
	w.WriteString(info.Name)
	w.WriteUUID(info.Flagship)
	return w.Bytes()
}

// DecodePlayerJoined parses a roster-add payload.
func DecodePlayerJoined(payload []byte) (PlayerInfo, error) {
	r := NewReader(payload)
	info := PlayerInfo{
		ID:       r.ReadUUID(),
		Name:     r.ReadString(),
		Flagship: r.ReadUUID(),
	}
	if err := r.Err(); err != nil {
		return PlayerInfo{}, fmt.Errorf("failed to decode player joined: %w", err)
	}
	return info, nil
}

// EncodePlayerLeft serializes a roster-remove payload.
func EncodePlayerLeft(player uuid.UUID) []byte {
	w := NewWriter()
	w.WriteUUID(player)
	return w.Bytes()
}

// DecodePlayerLeft parses a roster-remove payload.
func DecodePlayerLeft(payload []byte) (uuid.UUID, error) {
	r := NewReader(payload)
	player := r.ReadUUID()
	if err := r.Err(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode player left: %w", err)
	}
	return player, nil
}

// EncodeServerMessage serializes an operator chat broadcast.
func EncodeServerMessage(text string) []byte {
	w := NewWriter()
	w.WriteString(text)
	return w.Bytes()
}

// DecodeServerMessage parses an operator chat broadcast.
func DecodeServerMessage(payload []byte) (string, error) {
	r := NewReader(payload)
	text := r.ReadString()
	if err := r.Err(); err != nil {
		return "", fmt.Errorf("failed to decode server message: %w", err)
	}
	return text, nil
}

// Ping carries a client ping id and send time; the pong echoes both.
type Ping struct {
	ID     uint64
	SentMs int64
}

// EncodePing serializes a ping or pong payload.
func EncodePing(p Ping) []byte {
	w := NewWriter()
	w.WriteUint64(p.ID)
	w.WriteInt64(p.SentMs)
	return w.Bytes()
}

// DecodePing parses a ping or pong payload.
func DecodePing(payload []byte) (Ping, error) {
	r := NewReader(payload)
	p := Ping{
		ID:     r.ReadUint64(),
		SentMs: r.ReadInt64(),
	}
	if err := r.Err(); err != nil {
		return Ping{}, fmt.Errorf("failed to decode ping: %w", err)
	}
	return p, nil
}
