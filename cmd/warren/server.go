package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/warren-mesh/warren/pkg/actor"
	"github.com/warren-mesh/warren/pkg/actor/credsync"
	"github.com/warren-mesh/warren/pkg/actor/heartbeat"
	"github.com/warren-mesh/warren/pkg/actor/introducer"
	"github.com/warren-mesh/warren/pkg/actor/ratelimit"
	"github.com/warren-mesh/warren/pkg/actor/receiver"
	"github.com/warren-mesh/warren/pkg/actor/replication"
	"github.com/warren-mesh/warren/pkg/actor/sender"
	"github.com/warren-mesh/warren/pkg/audit"
	"github.com/warren-mesh/warren/pkg/constants"
	"github.com/warren-mesh/warren/pkg/credstore"
	"github.com/warren-mesh/warren/pkg/meshbus"
	"github.com/warren-mesh/warren/pkg/store"
	"github.com/warren-mesh/warren/pkg/transport"
	"github.com/warren-mesh/warren/pkg/transport/quic"
	"github.com/warren-mesh/warren/pkg/transport/tcp"
	"github.com/warren-mesh/warren/pkg/wire"
)

// serverCmd runs the node: joins the mesh, starts the actor suite under a
// supervisor, and blocks until interrupted (spec §6 CLI surface "server
// [bootstrap ticket ...]"), grounded on original_source's commands/server.rs.
var serverCmd = &cobra.Command{
	Use:   "server [bootstrap-ticket ...]",
	Short: "Run this node: join the mesh and replicate secrets",
	RunE:  runServer,
}

func init() {
	addStoreFlag(serverCmd)
	serverCmd.Flags().String("listen", fmt.Sprintf(":%d", constants.DefaultQUICPort), "local address to listen on")
	serverCmd.Flags().String("advertise-addr", "", "address other nodes should dial to reach this node (required)")
	serverCmd.Flags().String("transport", "quic", "transport to use: quic or tcp")
	serverCmd.Flags().String("hostname", "", "display name advertised to peers (defaults to the OS hostname)")
	serverCmd.Flags().String("credstore-path", "/var/lib/credstore", "directory systemd-creds writes credential files to")
	serverCmd.Flags().Bool("user-scope", false, "use user-scope systemd credentials instead of system-scope")
	serverCmd.MarkFlagRequired("advertise-addr")
}

func runServer(cmd *cobra.Command, bootstrapTickets []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn, _ := cmd.Flags().GetString("store-dsn")
	listenAddr, _ := cmd.Flags().GetString("listen")
	advertiseAddr, _ := cmd.Flags().GetString("advertise-addr")
	transportName, _ := cmd.Flags().GetString("transport")
	hostname, _ := cmd.Flags().GetString("hostname")
	credstorePath, _ := cmd.Flags().GetString("credstore-path")
	userScope, _ := cmd.Flags().GetBool("user-scope")

	if hostname == "" {
		if h, err := os.Hostname(); err == nil {
			hostname = h
		}
	}

	logrus.Info("starting warren")

	st, err := openStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.Close()

	auditLog := audit.New(st.Audit())

	id, err := loadOrGenerateIdentity(ctx, st.Identity(), auditLog)
	if err != nil {
		return err
	}
	logrus.WithField("node_id", id.NodeID()).Info("identity loaded")

	ownTicket := meshbus.EncodeTicket(meshbus.Ticket{
		Addr:         advertiseAddr,
		NodeID:       id.NodeID(),
		RecipientKey: id.RecipientPublicKey[:],
	})

	bootstrap, err := parseBootstrapTickets(ctx, st.Peers(), bootstrapTickets)
	if err != nil {
		return err
	}

	transports := transport.NewRegistry(quic.New(), tcp.New())
	tr, ok := transports.Get(transportName)
	if !ok {
		return fmt.Errorf("unknown transport %q (want one of %v)", transportName, transports.Names())
	}

	tlsConfig, err := selfSignedTLSConfig()
	if err != nil {
		return err
	}

	bus, err := meshbus.SubscribeAndJoin(ctx, tr, tlsConfig, id, listenAddr, bootstrap)
	if err != nil {
		return fmt.Errorf("join mesh: %w", err)
	}
	defer bus.Close()

	creds := credstore.New(credstorePath, userScope)
	if creds.IsAvailable() {
		logrus.Info("systemd-creds is available - systemd secrets integration enabled")
	} else {
		logrus.Warn("systemd-creds is NOT available - systemd secrets integration disabled")
	}

	limiter := ratelimit.New(ratelimit.Config{})

	snd := sender.New(bus, id)
	credsyncActor := credsync.New(creds, id, st.Secrets(), auditLog)
	replicationActor := replication.New(id, st.Secrets(), st.Peers(), snd, credsyncActor, auditLog)
	introducerActor := introducer.New(id, snd, st.Peers(), ownTicket, hostname)
	heartbeatActor := heartbeat.New(id, snd, 0)
	recv := receiver.New(bus, st.Peers(), limiter, auditLog, introducerActor, replicationActor)

	sup := actor.NewSupervisor()
	sup.Spawn(snd)
	sup.Spawn(recv)
	sup.Spawn(introducerActor)
	sup.Spawn(replicationActor)
	sup.Spawn(credsyncActor)
	sup.Spawn(heartbeatActor)

	// Actors run under their own background lifetime, independent of ctx:
	// Shutdown is triggered explicitly below, after the best-effort Leaving
	// broadcast has had a chance to go out. If actors instead inherited ctx
	// directly, the signal that cancels ctx would tear every actor down
	// before the Leaving send below ever reached the sender's mailbox.
	if err := sup.Start(context.Background()); err != nil {
		return fmt.Errorf("start actors: %w", err)
	}

	joined := wire.Joined(id.NodeID(), ownTicket, hostname, id.RecipientPublicKey[:], time.Now().Unix())
	if err := snd.Send(ctx, joined); err != nil {
		logrus.WithError(err).Warn("failed to queue initial Joined broadcast")
	}

	logrus.Info("node started, waiting for shutdown signal")
	<-ctx.Done()
	logrus.Info("shutdown signal received, leaving mesh")

	leaveCtx, cancel := context.WithTimeout(context.Background(), constants.LeavingSendTimeout)
	leaving := wire.Leaving(id.NodeID(), ownTicket, time.Now().Unix())
	if err := snd.Send(leaveCtx, leaving); err != nil {
		logrus.WithError(err).Warn("failed to send best-effort Leaving broadcast")
	}
	cancel()

	if err := sup.Shutdown(); err != nil {
		logrus.WithError(err).Warn("actor supervisor shutdown did not complete cleanly")
	}

	if err := sup.Wait(); err != nil {
		logrus.WithError(err).Warn("an actor exited with an error")
	}

	logrus.Info("shutdown complete")
	return nil
}

func parseBootstrapTickets(ctx context.Context, peers store.PeerStore, tickets []string) ([]meshbus.Ticket, error) {
	parsed := make([]meshbus.Ticket, 0, len(tickets))
	for _, s := range tickets {
		t, err := meshbus.ParseTicket(s)
		if err != nil {
			return nil, fmt.Errorf("parse bootstrap ticket: %w", err)
		}
		parsed = append(parsed, t)

		if err := peers.Upsert(ctx, store.Peer{
			NodeID:       t.NodeID,
			LastSeen:     time.Now(),
			RecipientKey: t.RecipientKey,
			Ticket:       s,
		}); err != nil {
			return nil, fmt.Errorf("record bootstrap peer: %w", err)
		}
	}
	return parsed, nil
}
