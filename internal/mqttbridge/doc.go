// Package mqttbridge mirrors the device registry onto an MQTT broker.
//
// The bridge is a registry observer. Each discovered or updated device is
// published as retained JSON so late subscribers see the current set:
//
//	{prefix}/devices/{address}   {"name":"Lamp1","address":"192.168.1.40",...}
//	{prefix}/events/cleared      {"timestamp":"..."} on rediscovery
//	{prefix}/status              "online"/"offline", the offline form is the LWT
//
// Clearing the registry also clears the retained device topics.
package mqttbridge
