package http

import (
	"encoding/json"

	"github.com/vovakirdan/singroom-server/internal/core"
	"github.com/vovakirdan/singroom-server/internal/proto"
)

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

func roomCommand(kind core.CommandKind, data json.RawMessage) (*core.Command, *proto.Error, error) {
	var rd proto.RoomData
	if err := json.Unmarshal(data, &rd); err != nil {
		return nil, nil, err
	}
	if rd.Room == "" {
		return nil, badRequest("room is required"), nil
	}
	return &core.Command{Kind: kind, Room: rd.Room}, nil, nil
}

// inboundToCommand maps a client frame to a hub command. A non-nil
// *proto.Error is reported to the client; a non-nil error ends the connection.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoinRoom:
		return roomCommand(core.CommandJoinRoom, inbound.Data)
	case proto.InboundTypeLeaveRoom:
		return roomCommand(core.CommandLeaveRoom, inbound.Data)
	case proto.InboundTypeEnqueueForTurn:
		return roomCommand(core.CommandEnqueue, inbound.Data)
	case proto.InboundTypeLeaveQueue:
		return roomCommand(core.CommandLeaveQueue, inbound.Data)
	case proto.InboundTypeStopPerforming:
		return roomCommand(core.CommandStopPerforming, inbound.Data)
	case proto.InboundTypeRegisterListener:
		return roomCommand(core.CommandRegisterListener, inbound.Data)
	case proto.InboundTypeUnregisterListener:
		return roomCommand(core.CommandUnregisterListener, inbound.Data)
	case proto.InboundTypeMessage:
		var msg proto.MessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if msg.Room == "" {
			return nil, badRequest("room is required"), nil
		}
		return &core.Command{
			Kind: core.CommandSendMessage,
			Room: msg.Room,
			Message: core.Message{
				Text:   msg.Text,
				Mode:   core.Mode(msg.Mode),
				Target: msg.Target,
				Color:  msg.Color,
			},
		}, nil, nil
	case proto.InboundTypeKickUser:
		var kick proto.KickData
		if err := json.Unmarshal(inbound.Data, &kick); err != nil {
			return nil, nil, err
		}
		if kick.Room == "" || kick.Target == "" {
			return nil, badRequest("room and target are required"), nil
		}
		return &core.Command{Kind: core.CommandKick, Room: kick.Room, Target: kick.Target}, nil, nil
	case proto.InboundTypeRate:
		var rate proto.RateData
		if err := json.Unmarshal(inbound.Data, &rate); err != nil {
			return nil, nil, err
		}
		if rate.Room == "" {
			return nil, badRequest("room is required"), nil
		}
		return &core.Command{Kind: core.CommandRate, Room: rate.Room, Score: rate.Score}, nil, nil
	case proto.InboundTypeHello:
		return nil, badRequest("already introduced"), nil
	default:
		return nil, badRequest("unknown message type"), nil
	}
}

func event(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func outboundFromEvent(ev *core.Event) proto.Outbound {
	switch ev.Kind {
	case core.EventRoomMessage:
		m := ev.Message
		return event(proto.EventMessage, proto.EventMessageData{
			ID:        m.ID,
			Room:      m.Room,
			User:      m.From,
			Role:      m.Role,
			Text:      m.Text,
			Mode:      string(m.Mode),
			Target:    m.Target,
			Color:     m.Color,
			Monitored: m.Monitored,
			TS:        m.CreatedAt.Unix(),
		})
	case core.EventSystemNotice:
		return event(proto.EventSystem, proto.SystemData{Room: ev.Room, User: ev.User, Text: ev.Text})
	case core.EventMembers:
		return event(proto.EventMembers, membersData(ev.Room, ev.Members))
	case core.EventTurnState:
		return event(proto.EventTurn, turnData(ev.Turn))
	case core.EventTurnStart:
		return event(proto.EventTurnStart, proto.TurnStartData{Room: ev.Room, Performer: ev.User, Role: string(ev.Role)})
	case core.EventPerformanceEnded:
		return event(proto.EventPerformanceEnded, proto.PerformanceData{Room: ev.Room, Performer: ev.User, Reason: ev.Text})
	case core.EventListenEnded:
		return event(proto.EventListenEnded, proto.PerformanceData{Room: ev.Room, Performer: ev.User})
	case core.EventScoreResult:
		data := proto.ScoreData{Room: ev.Room, Performer: ev.User}
		if ev.Score != nil {
			data.Mean, data.Count = ev.Score.Mean, ev.Score.Count
		}
		return event(proto.EventScoreResult, data)
	case core.EventStreamCredential:
		data := proto.CredentialData{Room: ev.Room, Performer: ev.User}
		if c := ev.Credential; c != nil {
			data.URL, data.Token, data.MediaRoom, data.CanPublish = c.URL, c.Token, c.RoomName, c.CanPublish
		}
		return event(proto.EventStreamCredential, data)
	case core.EventError:
		if ev.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: ev.Error.Code, Msg: ev.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func membersData(room string, in []core.MemberInfo) proto.MembersData {
	members := make([]proto.Member, 0, len(in))
	for _, m := range in {
		members = append(members, proto.Member{
			Name:    m.Name,
			Role:    m.Role,
			Level:   m.Level,
			Exp:     m.Exp,
			Gender:  m.Gender,
			Avatar:  m.Avatar,
			Present: m.Present,
		})
	}
	return proto.MembersData{Room: room, Members: members}
}

func turnData(s *core.TurnSnapshot) proto.TurnData {
	if s == nil {
		return proto.TurnData{Queue: []string{}, Listeners: []string{}}
	}
	return proto.TurnData{
		Room:        s.Room,
		Phase:       string(s.Phase),
		Performer:   s.Performer,
		Queue:       s.Queue,
		Listeners:   s.Listeners,
		ScoringOpen: s.ScoringOpen,
	}
}

func forceLogout(ev *core.Eviction) proto.Outbound {
	return proto.Outbound{
		Type: proto.OutboundTypeForceLogout,
		Data: proto.ForceLogoutData{Reason: ev.Reason, Kind: string(ev.Kind)},
	}
}
