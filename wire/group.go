package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/user/wifidirect-sim/logger"
	"github.com/user/wifidirect-sim/util"
)

const negotiationTimeout = 5 * time.Second

// writeMessage frames a message as 4-byte big-endian length + JSON payload
func writeMessage(conn net.Conn, msg *p2pMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := binary.Write(conn, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err = conn.Write(data)
	return err
}

// loggable renders a frame as a protobuf Struct so the JSON log helpers
// print it through protojson like the rest of the platform traffic
func (m *p2pMessage) loggable() *structpb.Struct {
	fields := map[string]interface{}{
		"type":        m.Type,
		"sender_uuid": m.SenderUUID,
		"sender_mac":  m.SenderMAC,
	}
	if m.SenderName != "" {
		fields["sender_name"] = m.SenderName
	}
	switch m.Type {
	case msgGoNegotiationRequest:
		fields["intent"] = m.Intent
		fields["wps_method"] = m.WpsMethod
		fields["has_group"] = m.HasGroup
	case msgGoNegotiationResponse:
		fields["intent"] = m.Intent
		fields["has_group"] = m.HasGroup
		fields["status"] = m.Status
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil
	}
	return s
}

// readMessage reads one length-prefixed JSON frame
func readMessage(conn net.Conn) (*p2pMessage, error) {
	var msgLen uint32
	if err := binary.Read(conn, binary.BigEndian, &msgLen); err != nil {
		return nil, err
	}
	data := make([]byte, msgLen)
	if _, err := io.ReadFull(conn, data); err != nil {
		return nil, err
	}
	var msg p2pMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// negotiateGroupOwner decides GO negotiation: higher intent wins, MAC string
// comparison breaks ties. Returns true when side a becomes the owner.
// Both ends run this with the same inputs and reach the same answer.
func negotiateGroupOwner(aIntent int, aMAC string, bIntent int, bMAC string) bool {
	if aIntent != bIntent {
		return aIntent > bIntent
	}
	return aMAC > bMAC
}

// networkNameFor builds the group SSID from the owner's identity,
// Android-style: DIRECT-xy-Name
func networkNameFor(ownerUUID, ownerName string) string {
	tag := ownerUUID
	if len(tag) > 2 {
		tag = tag[:2]
	}
	name := strings.ReplaceAll(ownerName, " ", "")
	if len(name) > 16 {
		name = name[:16]
	}
	return fmt.Sprintf("DIRECT-%s-%s", tag, name)
}

// clientAddressFor derives a stable client IP in the group subnet
func clientAddressFor(hardwareUUID string) string {
	h := fnv.New32a()
	h.Write([]byte(hardwareUUID))
	return fmt.Sprintf("192.168.49.%d", 2+h.Sum32()%250)
}

// acceptConnections handles incoming GO negotiation requests
func (w *Wire) acceptConnections() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopListening:
			return
		default:
		}

		conn, err := w.listener.Accept()
		if err != nil {
			select {
			case <-w.stopListening:
				return
			default:
			}
			continue
		}

		w.wg.Add(1)
		go w.handleIncomingConnection(conn)
	}
}

// handleIncomingConnection runs the responder half of GO negotiation
func (w *Wire) handleIncomingConnection(conn net.Conn) {
	defer w.wg.Done()

	conn.SetReadDeadline(time.Now().Add(negotiationTimeout))
	req, err := readMessage(conn)
	if err != nil || req.Type != msgGoNegotiationRequest {
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})
	logger.DebugJSON(w.logPrefix(), "📥 RX "+req.Type, req.loggable())

	time.Sleep(w.sim.FormationDelay())

	w.mu.RLock()
	ourIntent := w.intent
	ourName := w.deviceName
	hasGroup := w.group != nil
	isOwner := hasGroup && w.group.isOwner
	_, alreadyLinked := w.connections[req.SenderUUID]
	w.mu.RUnlock()

	reject := func(status int) {
		writeMessage(conn, &p2pMessage{
			Type:       msgGoNegotiationResponse,
			SenderUUID: w.hardwareUUID,
			SenderMAC:  w.mac,
			SenderName: ourName,
			Status:     status,
		})
		conn.Close()
	}

	// A PBC-only device refuses PIN-based WPS outright
	if req.WpsMethod != WpsMethodPBC {
		logger.Warn(w.logPrefix(), "Rejecting %s: WPS method %q not supported", shortID(req.SenderUUID), req.WpsMethod)
		reject(StatusWpsNotSupported)
		return
	}
	// A client cannot accept invitations, and two owners cannot merge
	if alreadyLinked || (hasGroup && !isOwner) || (hasGroup && req.HasGroup) {
		logger.Warn(w.logPrefix(), "Rejecting %s: busy", shortID(req.SenderUUID))
		reject(StatusBusy)
		return
	}

	resp := &p2pMessage{
		Type:       msgGoNegotiationResponse,
		SenderUUID: w.hardwareUUID,
		SenderMAC:  w.mac,
		SenderName: ourName,
		Intent:     ourIntent,
		HasGroup:   hasGroup,
		Status:     StatusSuccess,
	}
	logger.DebugJSON(w.logPrefix(), "📤 TX "+resp.Type, resp.loggable())
	if err := writeMessage(conn, resp); err != nil {
		conn.Close()
		return
	}

	// Decide ownership: an existing group wins outright, otherwise compare
	// intents the way both ends do
	var weOwn bool
	switch {
	case isOwner:
		weOwn = true
	case req.HasGroup:
		weOwn = false
	default:
		weOwn = negotiateGroupOwner(ourIntent, w.mac, req.Intent, req.SenderMAC)
	}

	w.finalizeGroup(conn, req.SenderUUID, req.SenderMAC, req.SenderName, weOwn)
}

// Connect dials a peer and runs the initiator half of GO negotiation.
// Blocks until the group is formed or the negotiation fails.
func (w *Wire) Connect(peerUUID string, wpsMethod string) error {
	w.mu.RLock()
	_, exists := w.connections[peerUUID]
	hasGroup := w.group != nil
	isOwner := hasGroup && w.group.isOwner
	ourIntent := w.intent
	ourName := w.deviceName
	w.mu.RUnlock()

	if exists {
		return fmt.Errorf("already connected to %s", peerUUID)
	}
	if hasGroup && !isOwner {
		return fmt.Errorf("already joined to a group as client")
	}

	w.pendingConnect.Store(true)
	w.cancelRequested.Store(false)
	defer w.pendingConnect.Store(false)

	// GO negotiation takes real time over the air
	time.Sleep(w.sim.ConnectDelay())

	if w.cancelRequested.Load() {
		return fmt.Errorf("connect to %s canceled", peerUUID)
	}
	if w.sim.ShouldFailConnect() {
		return fmt.Errorf("GO negotiation with %s failed", peerUUID)
	}

	socketPath := filepath.Join(util.GetSocketDir(), fmt.Sprintf("wifidirect-%s.sock", peerUUID))
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("peer %s unreachable: %w", peerUUID, err)
	}

	req := &p2pMessage{
		Type:       msgGoNegotiationRequest,
		SenderUUID: w.hardwareUUID,
		SenderMAC:  w.mac,
		SenderName: ourName,
		Intent:     ourIntent,
		WpsMethod:  wpsMethod,
		HasGroup:   hasGroup,
	}
	logger.DebugJSON(w.logPrefix(), "📤 TX "+req.Type, req.loggable())
	if err := writeMessage(conn, req); err != nil {
		conn.Close()
		return fmt.Errorf("failed to send negotiation request: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(negotiationTimeout))
	resp, err := readMessage(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("no negotiation response from %s: %w", peerUUID, err)
	}
	conn.SetReadDeadline(time.Time{})
	logger.DebugJSON(w.logPrefix(), "📥 RX "+resp.Type, resp.loggable())

	switch resp.Status {
	case StatusSuccess:
	case StatusWpsNotSupported:
		conn.Close()
		return fmt.Errorf("peer %s rejected WPS method %q", peerUUID, wpsMethod)
	case StatusBusy:
		conn.Close()
		return fmt.Errorf("peer %s is busy", peerUUID)
	default:
		conn.Close()
		return fmt.Errorf("peer %s rejected negotiation (status %d)", peerUUID, resp.Status)
	}

	if w.cancelRequested.Load() {
		conn.Close()
		return fmt.Errorf("connect to %s canceled", peerUUID)
	}

	var weOwn bool
	switch {
	case isOwner:
		weOwn = true
	case resp.HasGroup:
		weOwn = false
	default:
		weOwn = negotiateGroupOwner(ourIntent, w.mac, resp.Intent, resp.SenderMAC)
	}

	w.finalizeGroup(conn, resp.SenderUUID, resp.SenderMAC, resp.SenderName, weOwn)
	return nil
}

// CancelConnect aborts an in-flight Connect. Fails when nothing is pending.
func (w *Wire) CancelConnect() error {
	if !w.pendingConnect.Load() {
		return fmt.Errorf("no pending connect")
	}
	w.cancelRequested.Store(true)
	return nil
}

// finalizeGroup records the link and group state on one side and fires the
// platform callbacks
func (w *Wire) finalizeGroup(conn net.Conn, peerUUID, peerMAC, peerName string, weOwn bool) {
	connection := &Connection{
		conn:       conn,
		remoteUUID: peerUUID,
		remoteMAC:  peerMAC,
		remoteName: peerName,
	}

	w.mu.Lock()
	w.connections[peerUUID] = connection

	newlyFormed := w.group == nil
	if newlyFormed {
		ownerUUID, ownerName := peerUUID, peerName
		localAddress := clientAddressFor(w.hardwareUUID)
		if weOwn {
			ownerUUID, ownerName = w.hardwareUUID, w.deviceName
			localAddress = GroupOwnerAddress
		}
		w.group = &groupState{
			isOwner:      weOwn,
			ownerUUID:    ownerUUID,
			networkName:  networkNameFor(ownerUUID, ownerName),
			localAddress: localAddress,
			members:      make(map[string]string),
		}
	}
	if w.group.isOwner {
		w.group.members[peerUUID] = peerMAC
	}
	info := w.groupInfoLocked()
	members := w.memberUUIDsLocked()
	w.mu.Unlock()

	stopChan := make(chan struct{})
	w.stopMu.Lock()
	w.stopReading[peerUUID] = stopChan
	w.stopMu.Unlock()

	w.wg.Add(1)
	go w.readMessages(peerUUID, connection, stopChan)

	role := "client"
	if info.IsGroupOwner {
		role = "GO"
	}
	logger.Info(w.logPrefix(), "🤝 Group %s formed with %s (role: %s)", info.NetworkName, shortID(peerUUID), role)

	w.callbackMu.RLock()
	formedCb := w.groupFormedCallback
	membersCb := w.membersChangedCallback
	w.callbackMu.RUnlock()
	if newlyFormed && formedCb != nil {
		formedCb(info)
	}
	if info.IsGroupOwner && membersCb != nil {
		membersCb(members)
	}
}

func (w *Wire) memberUUIDsLocked() []string {
	if w.group == nil || !w.group.isOwner {
		return nil
	}
	members := make([]string, 0, len(w.group.members))
	for uuid := range w.group.members {
		members = append(members, uuid)
	}
	return members
}

// RemoveGroup leaves (client) or dissolves (owner) the current group.
// Fails when no group is formed, matching the platform's removeGroup.
func (w *Wire) RemoveGroup() error {
	w.mu.Lock()
	if w.group == nil {
		w.mu.Unlock()
		return fmt.Errorf("no group formed")
	}
	conns := make([]*Connection, 0, len(w.connections))
	for _, c := range w.connections {
		conns = append(conns, c)
	}
	w.connections = make(map[string]*Connection)
	w.group = nil
	w.mu.Unlock()

	for _, c := range conns {
		writeMessage(c.conn, &p2pMessage{
			Type:       msgGroupRemove,
			SenderUUID: w.hardwareUUID,
			SenderMAC:  w.mac,
		})
		c.conn.Close()
	}

	logger.Info(w.logPrefix(), "👋 Group removed")

	w.callbackMu.RLock()
	removedCb := w.groupRemovedCallback
	w.callbackMu.RUnlock()
	if removedCb != nil {
		removedCb()
	}
	return nil
}

// readMessages drains a group link until the peer leaves or the socket dies
func (w *Wire) readMessages(peerUUID string, connection *Connection, stopChan chan struct{}) {
	defer func() {
		w.wg.Done()
		connection.conn.Close()

		w.stopMu.Lock()
		delete(w.stopReading, peerUUID)
		w.stopMu.Unlock()

		w.handlePeerGone(peerUUID)
	}()

	for {
		select {
		case <-stopChan:
			return
		default:
		}

		msg, err := readMessage(connection.conn)
		if err != nil {
			return // Connection closed
		}

		switch msg.Type {
		case msgGroupRemove:
			logger.Debug(w.logPrefix(), "Peer %s left the group", shortID(peerUUID))
			return
		default:
			logger.Trace(w.logPrefix(), "Ignoring %q frame from %s", msg.Type, shortID(peerUUID))
		}
	}
}

// handlePeerGone updates group state after a link drops. A client losing its
// owner loses the group; an owner losing its last member dissolves it.
func (w *Wire) handlePeerGone(peerUUID string) {
	w.mu.Lock()
	delete(w.connections, peerUUID)

	if w.group == nil {
		w.mu.Unlock()
		return
	}

	dissolved := false
	if w.group.isOwner {
		delete(w.group.members, peerUUID)
		if len(w.group.members) == 0 {
			w.group = nil
			dissolved = true
		}
	} else if peerUUID == w.group.ownerUUID {
		w.group = nil
		dissolved = true
	}
	members := w.memberUUIDsLocked()
	stillOwner := w.group != nil && w.group.isOwner
	w.mu.Unlock()

	w.callbackMu.RLock()
	removedCb := w.groupRemovedCallback
	membersCb := w.membersChangedCallback
	w.callbackMu.RUnlock()

	if dissolved {
		logger.Info(w.logPrefix(), "💔 Group gone (peer %s left)", shortID(peerUUID))
		if removedCb != nil {
			removedCb()
		}
	} else if stillOwner && membersCb != nil {
		membersCb(members)
	}
}

// ConnectedPeers returns the UUIDs of peers on active group links
func (w *Wire) ConnectedPeers() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	peers := make([]string, 0, len(w.connections))
	for uuid := range w.connections {
		peers = append(peers, uuid)
	}
	return peers
}
