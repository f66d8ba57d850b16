package sqlinline

const QInsertDonation = `--sql 57affc76-445b-4a45-a33f-50b589dda6eb
insert into donations (
    id, tracking_code, project_id, amount, currency, payment_method, status,
    donor_id, donor, message, created_at, updated_at
)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $11);
`

const QSelectDonationByID = `--sql 49e2a22f-f43d-4361-ae8d-12b987e5c02a
select id, tracking_code, project_id, amount, currency, payment_method, status,
       gateway, coalesce(authority, ''), transaction_id, reference_id, payment_attempts,
       donor_id, donor, message, receipt,
       certificate_url, certificate_generated, certificate_generated_at,
       admin_notes, verified_by, verified_at, completed_at, refunded_at, created_at, updated_at
from donations
where id = $1;
`

const QSelectDonationByTrackingCode = `--sql 4c31cae8-04b6-460b-9fc6-293b20829393
select id, tracking_code, project_id, amount, currency, payment_method, status,
       gateway, coalesce(authority, ''), transaction_id, reference_id, payment_attempts,
       donor_id, donor, message, receipt,
       certificate_url, certificate_generated, certificate_generated_at,
       admin_notes, verified_by, verified_at, completed_at, refunded_at, created_at, updated_at
from donations
where tracking_code = $1;
`

const QSelectDonationByAuthority = `--sql 88de7c1c-7dcd-4969-9569-d17dd3a04393
select id, tracking_code, project_id, amount, currency, payment_method, status,
       gateway, coalesce(authority, ''), transaction_id, reference_id, payment_attempts,
       donor_id, donor, message, receipt,
       certificate_url, certificate_generated, certificate_generated_at,
       admin_notes, verified_by, verified_at, completed_at, refunded_at, created_at, updated_at
from donations
where authority = $1;
`

// QTransitionDonation only matches while status is one of $2 and, when $16 is not
// empty, the stored authority equals $16. Empty text and null arguments keep the
// stored column value.
const QTransitionDonation = `--sql 61692746-b069-471a-8b45-6184ffa57b6f
update donations
set status           = $3,
    gateway          = coalesce(nullif($4::text, ''), gateway),
    authority        = coalesce(nullif($5::text, ''), authority),
    transaction_id   = coalesce(nullif($6::text, ''), transaction_id),
    reference_id     = coalesce(nullif($7::text, ''), reference_id),
    payment_attempts = payment_attempts + case when $8::bool then 1 else 0 end,
    receipt          = coalesce($9::jsonb, receipt),
    admin_notes      = coalesce(nullif($10::text, ''), admin_notes),
    verified_by      = coalesce($11::text, verified_by),
    verified_at      = coalesce($12::timestamptz, verified_at),
    completed_at     = coalesce($13::timestamptz, completed_at),
    refunded_at      = coalesce($14::timestamptz, refunded_at),
    updated_at       = $15
where id = $1
  and status = any($2::text[])
  and ($16::text = '' or authority = $16::text)
returning id, tracking_code, project_id, amount, currency, payment_method, status,
          gateway, coalesce(authority, ''), transaction_id, reference_id, payment_attempts,
          donor_id, donor, message, receipt,
          certificate_url, certificate_generated, certificate_generated_at,
          admin_notes, verified_by, verified_at, completed_at, refunded_at, created_at, updated_at;
`

const QSetDonationCertificate = `--sql fd9c8478-857b-46d6-a603-45780e21dcea
update donations
set certificate_url = $2,
    certificate_generated = true,
    certificate_generated_at = $3,
    updated_at = $3
where id = $1
  and certificate_generated = false;
`

const QDeleteDonation = `--sql 2eb2fdf9-efa6-48cb-bb77-c99b4cdbdabe
delete from donations
where id = $1
  and status = any($2::text[]);
`

const QDonationExists = `--sql 49113d4c-ede2-49b2-890a-823505862e97
select exists(select 1 from donations where id = $1);
`

const QListDonationsByProject = `--sql 8cffff13-5cc5-4397-9211-fb48ae466b91
select id, tracking_code, project_id, amount, currency, payment_method, status,
       gateway, coalesce(authority, ''), transaction_id, reference_id, payment_attempts,
       donor_id, donor, message, receipt,
       certificate_url, certificate_generated, certificate_generated_at,
       admin_notes, verified_by, verified_at, completed_at, refunded_at, created_at, updated_at
from donations
where project_id = $1
  and (cardinality($2::text[]) = 0 or status = any($2::text[]))
order by created_at desc
limit $3;
`

const QNextTrackingSequence = `--sql a2d4426b-682c-4250-a944-b350cc0f736e
insert into tracking_sequences (day, last_value)
values ($1::date, 1)
on conflict (day) do update
    set last_value = tracking_sequences.last_value + 1
returning last_value;
`
