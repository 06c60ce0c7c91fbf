package signal

func (ctl *RoomWSController) handlePing(
	conn *wsConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	_ = ctl.sendJSON(conn, resp)
}
