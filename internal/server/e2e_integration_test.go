//go:build integration

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/gate-registration/pkg/auth"
	"github.com/morezero/gate-registration/pkg/changestream"
	"github.com/morezero/gate-registration/pkg/db"
	"github.com/morezero/gate-registration/pkg/events"
	"github.com/morezero/gate-registration/pkg/gate"
	"github.com/morezero/gate-registration/pkg/gate/gatetest"
	"github.com/morezero/gate-registration/pkg/realtime"
)

const e2ePrefix = "server:e2e_integration_test"

func startComms(t *testing.T) *comms.Conn {
	t.Helper()
	ns, err := commsserver.NewServer(&commsserver.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatalf("%s - failed to create NATS server: %v", e2ePrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - NATS server failed to start", e2ePrefix)
	}
	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("%s - failed to connect: %v", e2ePrefix, err)
	}
	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return nc
}

// instance is one running copy of the service as Run wires it.
type instance struct {
	srv      *httptest.Server
	registry *realtime.Registry
}

func startInstance(t *testing.T, ctx context.Context, svc *gate.Service, source changestream.Source, relay events.EventPublisher) *instance {
	t.Helper()
	reg := realtime.NewRegistry()
	hub := realtime.NewHub(reg)
	opts := &changestream.ListenerOpts{}
	if relay != nil {
		opts.Relay = relay
	}
	go changestream.NewListener(source, hub, opts).Run(ctx)

	srv := httptest.NewServer(NewRouter(RoutesParams{
		Service:            svc,
		Realtime:           realtime.NewHandler(reg, nil),
		JWTSecret:          testSecret,
		RequestTimeout:     5 * time.Second,
		HealthCheckTimeout: time.Second,
		MaxUploadBytes:     1 << 20,
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &instance{srv: srv, registry: reg}
}

func readUpdate(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("%s - ReadMessage: %v", e2ePrefix, err)
	}
	if string(msg) != `{"type":"update"}` {
		t.Errorf("%s - message = %s", e2ePrefix, msg)
	}
}

// TestE2E_CheckInReachesEveryInstance checks in through one instance and
// expects websocket clients of both the database-listening instance and the
// COMMS-fed instance to be told.
func TestE2E_CheckInReachesEveryInstance(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("server:e2e_integration_test - DATABASE_URL not set, skipping")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.EnsureDatabase(ctx, dbURL); err != nil {
		t.Fatalf("%s - EnsureDatabase: %v", e2ePrefix, err)
	}
	pool, err := db.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("%s - NewPool: %v", e2ePrefix, err)
	}
	t.Cleanup(pool.Close)
	migrationSQL, err := db.LoadMigrationFiles("")
	if err != nil {
		t.Fatalf("%s - LoadMigrationFiles: %v", e2ePrefix, err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		t.Fatalf("%s - RunMigrations: %v", e2ePrefix, err)
	}

	nc := startComms(t)
	svc := gate.NewService(gate.NewServiceParams{
		Repo:     db.NewRepository(pool),
		Uploader: &gatetest.Uploader{},
		Config:   gate.Config{JWTSecret: testSecret, Location: time.UTC},
	})
	publisher := events.NewCommsPublisher(nc, nil)

	primary := startInstance(t, ctx, svc,
		changestream.NewPGSource(pool, &changestream.PGSourceOpts{Origin: "primary"}), publisher)
	replica := startInstance(t, ctx, svc,
		changestream.NewCommsSource(nc, publisher.GlobalSubject()), nil)

	env := &testEnv{srv: primary.srv}
	id := env.createRequest(t)

	onPrimary := dialWS(t, primary.srv.URL+"/ws")
	onReplica := dialWS(t, replica.srv.URL+"/")
	waitForConnections(t, primary.registry, 1)
	waitForConnections(t, replica.registry, 1)

	// Listeners subscribe in their own goroutines.
	time.Sleep(250 * time.Millisecond)

	resp := env.do(t, http.MethodPost, "/api/registrations/"+id+"/checkin", token(t, auth.RoleStaff), nil)
	expectStatus(t, resp, http.StatusOK)

	readUpdate(t, onPrimary)
	readUpdate(t, onReplica)
}

// expectQuiet fails if conn receives anything within a short window. It
// leaves conn unusable, so it must be the last read.
func expectQuiet(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond)) //nolint:errcheck
	if _, msg, err := conn.ReadMessage(); err == nil {
		t.Errorf("%s - unexpected extra message %s", e2ePrefix, msg)
	}
}

// TestE2E_InsertCloseUpdateScenario drives three clients through the real
// registrations trigger: an insert reaches all three, and after one client
// closes an update reaches each of the other two exactly once. Integration
// packages share the database, so run them with -p 1.
func TestE2E_InsertCloseUpdateScenario(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("server:e2e_integration_test - DATABASE_URL not set, skipping")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.EnsureDatabase(ctx, dbURL); err != nil {
		t.Fatalf("%s - EnsureDatabase: %v", e2ePrefix, err)
	}
	pool, err := db.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("%s - NewPool: %v", e2ePrefix, err)
	}
	t.Cleanup(pool.Close)
	migrationSQL, err := db.LoadMigrationFiles("")
	if err != nil {
		t.Fatalf("%s - LoadMigrationFiles: %v", e2ePrefix, err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		t.Fatalf("%s - RunMigrations: %v", e2ePrefix, err)
	}

	svc := gate.NewService(gate.NewServiceParams{
		Repo:   db.NewRepository(pool),
		Config: gate.Config{JWTSecret: testSecret, Location: time.UTC},
	})
	inst := startInstance(t, ctx, svc, changestream.NewPGSource(pool, &changestream.PGSourceOpts{Origin: "e2e"}), nil)
	env := &testEnv{srv: inst.srv}

	clients := []*websocket.Conn{
		dialWS(t, inst.srv.URL+"/ws"),
		dialWS(t, inst.srv.URL+"/ws"),
		dialWS(t, inst.srv.URL+"/"),
	}
	waitForConnections(t, inst.registry, 3)
	// The listener subscribes in its own goroutine.
	time.Sleep(250 * time.Millisecond)

	// Insert: one registration row.
	id := env.createRequest(t)
	for _, c := range clients {
		readUpdate(t, c)
	}

	clients[0].Close()
	waitForConnections(t, inst.registry, 2)

	// Update: check-in touches the same row once.
	resp := env.do(t, http.MethodPost, "/api/registrations/"+id+"/checkin", token(t, auth.RoleStaff), nil)
	expectStatus(t, resp, http.StatusOK)
	for _, c := range clients[1:] {
		readUpdate(t, c)
	}
	for _, c := range clients[1:] {
		expectQuiet(t, c)
	}
}
