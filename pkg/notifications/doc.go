// Package notifications stores in-app notifications, delivers them as push
// messages in the background, and fans ad-hoc messages out across channels.
//
// Manager.Create persists a notification in the pending state and publishes
// a NotificationCreated event. PushDelivery handles that event on the event
// worker: it loads the notification and the user's push profile, picks the
// title and body for the user's language, sends the push and records the
// outcome (sent or failed). A user without a push token keeps the
// notification pending; it is still visible in-app.
//
// Dispatcher sends one payload over several channels at once and returns a
// result per channel. A failing or panicking channel does not affect the
// others.
package notifications
