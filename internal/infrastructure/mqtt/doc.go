// Package mqtt mirrors the bridge's entities onto an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained entity state publishing
//   - Set-topic subscriptions, restored after every reconnect
//   - Bridge availability through a retained status topic and Last Will
//
// # Topic Layout
//
//	{prefix}/{bridge_id}/status                       online / offline
//	{prefix}/{bridge_id}/{platform}/{device_id}/state retained entity snapshot
//	{prefix}/{bridge_id}/{platform}/{device_id}/set   {"state":"ON","brightness":128}
//
// The mirror is optional. The Control4 driver never talks MQTT; it only
// polls the HTTP endpoints.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Bridge.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.AllSets(), 1,
//	    func(topic string, payload []byte) error {
//	        platform, deviceID, ok := topics.ParseSet(topic)
//	        ...
//	    })
package mqtt
