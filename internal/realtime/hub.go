package realtime

import (
	"encoding/json"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"

	"go.uber.org/zap"
)

// 广播分组：全量、按设备、按用户
const (
	groupAll    = ""
	groupDevice = "device:"
	groupUser   = "user:"
)

type envelope struct {
	group string
	data  []byte
}

// Hub 维护在线客户端并按分组推送事件
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
	logger     *zap.Logger
}

// NewHub 创建推送中心
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 64),
		logger:     logger,
	}
}

// Run 事件循环，随服务生命周期运行
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("WebSocket client registered",
				zap.String("remote_addr", client.remoteAddr()),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("WebSocket client unregistered",
					zap.String("remote_addr", client.remoteAddr()),
				)
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if msg.group != groupAll && !client.groups[msg.group] {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// 发送缓冲满视为掉线，移除
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

func (h *Hub) publish(group string, message map[string]interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal realtime message", zap.Error(err))
		return
	}
	h.broadcast <- envelope{group: group, data: data}
}

// NotifySensorData 推送原始读数事件：全量 + 设备分组
func (h *Hub) NotifySensorData(reading *domain.SensorReading) {
	message := map[string]interface{}{
		"type":      "sensorData",
		"payload":   reading,
		"timestamp": time.Now(),
	}
	h.publish(groupAll, message)
	if reading.DeviceID != nil {
		h.publish(groupDevice+*reading.DeviceID, message)
	}
}

// NotifyEnergyConsumption 推送能耗记录事件：全量 + 设备分组
// 派生值（成本、碳排放）随消息携带，不落库
func (h *Hub) NotifyEnergyConsumption(record *domain.EnergyConsumption) {
	message := map[string]interface{}{
		"type": "energyConsumption",
		"payload": map[string]interface{}{
			"record":          record,
			"costPerHour":     record.CostPerHour(),
			"carbonFootprint": record.CarbonFootprint(),
		},
		"timestamp": time.Now(),
	}
	h.publish(groupAll, message)
	if record.DeviceID != nil {
		h.publish(groupDevice+*record.DeviceID, message)
	}
}

// NotifyAlertCreated 推送新报警：全量 + 用户分组 + 设备分组
func (h *Hub) NotifyAlertCreated(alert *domain.Alert) {
	message := map[string]interface{}{
		"type":      "alertCreated",
		"payload":   alert,
		"timestamp": time.Now(),
	}
	h.publish(groupAll, message)
	h.publish(groupUser+alert.UserID, message)
	if alert.DeviceID != nil {
		h.publish(groupDevice+*alert.DeviceID, message)
	}
}

// NotifyAlertUpdated 推送报警状态变更：只发给所属用户
func (h *Hub) NotifyAlertUpdated(alert *domain.Alert) {
	message := map[string]interface{}{
		"type":      "alertUpdated",
		"payload":   alert,
		"timestamp": time.Now(),
	}
	h.publish(groupUser+alert.UserID, message)
}
