package config

// DefaultConfiguration is the configuration that will be in effect if no configuration is loaded from any of the expected locations
const DefaultConfiguration = `[database]
dialect=sqlite3
connection-url=download-counter.sqlite3?_foreign_keys=on
connxn-max-idle-time-seconds=0
connxn-max-lifetime-seconds=0
max-idle-connxns=30
max-open-connxns=100
[http]
listener=:8080
read-timeout=240
write-timeout=240
[log]
filename=
max-file-size-in-mb=200
max-backups=3
max-age-in-days=28
compress-backups=true
[object-store]
log-bucket-url=file:///var/lib/download-counter/logs
[marker-store]
address=localhost:6379
max-idle-connxns=10
processing-ttl-seconds=120
processed-ttl-hours=720
[consumer]
subscription-url=mem://fastly-log-notifications
max-workers=25
max-task-queue-size=1000
[counter]
download-counts-enabled=true
name-cache-ttl-minutes=240
`
