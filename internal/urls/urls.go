package urls

// Reference links printed in troubleshooting hints

// Repository is the btscan source and issue tracker.
const Repository = "https://github.com/muurk/btscan"

// Issues is where unexpected scan failures should be reported.
const Issues = Repository + "/issues"

// BluetoothSetup covers adapters, rfkill and the bluetooth service on Linux.
const BluetoothSetup = "https://wiki.archlinux.org/title/Bluetooth"

