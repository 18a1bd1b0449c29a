package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"robopool/fleet"
	"robopool/poolstate"
	"robopool/store"
)

type Dispatcher struct {
	db          *store.DB
	pool        *poolstate.Manager
	fleets      *fleet.Registry
	emitter     Emitter
	criteria    Criteria
	moveTimeout time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(db *store.DB, pool *poolstate.Manager, fleets *fleet.Registry, emitter Emitter, criteria Criteria, moveTimeout time.Duration) *Dispatcher {
	if moveTimeout <= 0 {
		moveTimeout = time.Minute
	}
	return &Dispatcher{
		db:          db,
		pool:        pool,
		fleets:      fleets,
		emitter:     emitter,
		criteria:    criteria,
		moveTimeout: moveTimeout,
	}
}

// Allocate claims a free robot of robotType (the configured type when empty).
func (d *Dispatcher) Allocate(robotType string) (*store.Robot, error) {
	if robotType == "" {
		robotType = d.criteria.RobotType
	}
	robot, err := d.pool.Allocate(robotType, d.criteria.Status)
	if err != nil {
		if !errors.Is(err, store.ErrNoFreeRobot) {
			log.Printf("dispatch: allocate %s: %v", robotType, err)
		}
		d.emitter.EmitAllocationFailed(robotType, err.Error())
		return nil, err
	}
	d.emitter.EmitRobotAllocated(robot)
	return robot, nil
}

// Release returns the robot linked to an EWM resource to the pool.
func (d *Dispatcher) Release(resourceID string) (*store.Robot, error) {
	robot, err := d.pool.Release(resourceID)
	if err != nil {
		return nil, err
	}
	d.emitter.EmitRobotReleased(robot)
	return robot, nil
}

// MoveToBin sends the robot linked to resourceID to a warehouse bin. The
// robot and its backend are resolved before returning; the vendor sequence
// runs in the background and reports through the emitter.
func (d *Dispatcher) MoveToBin(resourceID, binID string) (*Move, error) {
	robot, backend, err := d.resolve(resourceID)
	if err != nil {
		return nil, err
	}
	move := d.newMove(MoveKindBin, robot, binID)
	req := fleet.MoveToBinRequest{RobotName: robot.Name, BinName: binID}
	d.run(move, func(ctx context.Context) (fleet.MoveResult, error) {
		return backend.MoveToBin(ctx, req)
	})
	return move, nil
}

// MoveToPosition sends the robot linked to resourceID to an ad-hoc position.
func (d *Dispatcher) MoveToPosition(resourceID string, pos fleet.Position, mapName string) (*Move, error) {
	robot, backend, err := d.resolve(resourceID)
	if err != nil {
		return nil, err
	}
	move := d.newMove(MoveKindPosition, robot, pos.Name)
	move.MapName = mapName
	move.Position = &pos
	req := fleet.MoveToPositionRequest{RobotName: robot.Name, Position: pos, MapName: mapName}
	d.run(move, func(ctx context.Context) (fleet.MoveResult, error) {
		return backend.MoveToPosition(ctx, req)
	})
	return move, nil
}

// Wait blocks until every background move has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) resolve(resourceID string) (*store.Robot, fleet.Backend, error) {
	robot, err := d.db.GetRobotByResource(resourceID)
	if err != nil {
		return nil, nil, err
	}
	backend, err := d.fleets.Lookup(robot.Vendor)
	if err != nil {
		log.Printf("dispatch: robot %s: %v", robot.ID, err)
		return robot, nil, err
	}
	return robot, backend, nil
}

func (d *Dispatcher) newMove(kind string, robot *store.Robot, target string) *Move {
	return &Move{
		ID:          uuid.New().String(),
		Kind:        kind,
		RobotID:     robot.ID,
		RobotName:   robot.Name,
		Vendor:      robot.Vendor,
		ResourceID:  robot.ResourceID,
		Target:      target,
		RequestedAt: time.Now(),
	}
}

func (d *Dispatcher) run(move *Move, fn func(ctx context.Context) (fleet.MoveResult, error)) {
	d.emitter.EmitMoveRequested(move)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.moveTimeout)
		defer cancel()

		result, err := fn(ctx)
		if err != nil {
			log.Printf("dispatch: %s move %s for robot %s to %q failed: %v", move.Kind, move.ID, move.RobotID, move.Target, err)
			d.emitter.EmitMoveFailed(move, fmt.Sprintf("%s: %v", move.Vendor, err))
			return
		}
		d.emitter.EmitMoveQueued(move, result)
	}()
}
