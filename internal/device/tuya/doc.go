// Package tuya talks to a Tuya Wi-Fi bulb over the local LAN protocol v3.3.
//
// Client keeps one TCP session open for the whole run, serialises requests
// and redials once when the bulb drops an idle socket. Payloads are JSON
// encrypted with AES-128-ECB under the device local key and framed with a
// CRC32-protected 0x000055AA envelope.
package tuya
